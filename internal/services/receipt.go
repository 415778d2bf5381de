package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/dukapay/dukapay-gobackend/internal/models"
)

// ReceiptService writes PDF receipts for successful transactions into a
// local directory that the server exposes under /receipts/.
type ReceiptService struct {
	dir string
}

func NewReceiptService(dir string) *ReceiptService {
	return &ReceiptService{dir: dir}
}

// GenerateReceipt writes a fixed-layout PDF for a successful transaction,
// named after the checkout request ID, and returns the path the client can
// fetch it from. The receipt directory is created if absent.
func (s *ReceiptService) GenerateReceipt(txn *models.Transaction) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %v", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 12)
	rows := [][2]string{
		{"Transaction ID", txn.CheckoutRequestID},
		{"M-Pesa Receipt", txn.MpesaReceiptNo},
		{"Phone Number", txn.PhoneNumber},
		{"Product", txn.ProductName},
		{"Amount Paid", fmt.Sprintf("KES %.2f", txn.AmountPaid)},
		{"Transaction Date", txn.TransactionDate},
		{"Status", txn.Status},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(50, 9, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 9, row[1], "", 1, "L", false, 0, "")
	}

	filename := txn.CheckoutRequestID + ".pdf"
	if err := pdf.OutputFileAndClose(filepath.Join(s.dir, filename)); err != nil {
		return "", fmt.Errorf("failed to write receipt: %v", err)
	}

	return "/receipts/" + filename, nil
}
