package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dukapay/dukapay-gobackend/internal/config"
	"github.com/dukapay/dukapay-gobackend/internal/db"
	"github.com/dukapay/dukapay-gobackend/internal/handlers"
	"github.com/dukapay/dukapay-gobackend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB
	client, err := db.Connect(context.Background(), cfg.Mongo.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Disconnect(ctx, client); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	log.Println("Successfully connected to MongoDB")

	database := client.Database(cfg.Mongo.DBName)

	// Initialize services and handlers
	gateway, err := services.NewMpesaGateway(cfg.Mpesa)
	if err != nil {
		log.Fatalf("Failed to initialize M-Pesa gateway: %v", err)
	}

	txnStore := services.NewMongoTransactionStore(database)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := txnStore.EnsureIndexes(ctx); err != nil {
			log.Printf("Warning: %v", err)
		}
		cancel()
	}

	receiptService := services.NewReceiptService(cfg.ReceiptDir)
	paymentService := services.NewPaymentService(gateway, txnStore, receiptService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	userService := services.NewUserService(database)
	userHandler := handlers.NewUserHandler(userService, cfg.Auth.JWTSecret)

	productService := services.NewProductService(database)
	productHandler := handlers.NewProductHandler(productService)

	orderService := services.NewOrderService(database, productService)
	orderHandler := handlers.NewOrderHandler(orderService)

	auth := handlers.NewAuthMiddleware(userService, cfg.Auth.JWTSecret)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/users/register", userHandler.Register).Methods("POST")
	router.HandleFunc("/api/users/login", userHandler.Login).Methods("POST")
	router.HandleFunc("/api/users/logout", userHandler.Logout).Methods("POST")
	router.HandleFunc("/api/users/me", auth.RequireAuth(userHandler.Me)).Methods("GET")
	router.HandleFunc("/api/users", auth.RequireAdmin(userHandler.GetUsers)).Methods("GET")

	router.HandleFunc("/api/products", productHandler.GetProducts).Methods("GET")
	router.HandleFunc("/api/products", auth.RequireAdmin(productHandler.CreateProduct)).Methods("POST")
	router.HandleFunc("/api/products/{productID}", productHandler.GetProduct).Methods("GET")
	router.HandleFunc("/api/products/{productID}", auth.RequireAdmin(productHandler.UpdateProduct)).Methods("PUT", "PATCH")
	router.HandleFunc("/api/products/{productID}", auth.RequireAdmin(productHandler.DeleteProduct)).Methods("DELETE")

	router.HandleFunc("/api/orders", auth.RequireAuth(orderHandler.CreateOrder)).Methods("POST")
	router.HandleFunc("/api/orders/mine", auth.RequireAuth(orderHandler.GetMyOrders)).Methods("GET")
	router.HandleFunc("/api/orders", auth.RequireAdmin(orderHandler.GetOrders)).Methods("GET")
	router.HandleFunc("/api/orders/{orderID}", auth.RequireAuth(orderHandler.GetOrder)).Methods("GET")
	router.HandleFunc("/api/orders/{orderID}/deliver", auth.RequireAdmin(orderHandler.MarkDelivered)).Methods("PATCH")

	router.HandleFunc("/api/payments/initiate", paymentHandler.InitiatePayment).Methods("POST")
	router.HandleFunc("/api/payments/callback", paymentHandler.Callback).Methods("POST")
	router.HandleFunc("/api/payments", auth.RequireAdmin(paymentHandler.GetTransactions)).Methods("GET")
	router.HandleFunc("/api/payments/{checkoutID}", auth.RequireAuth(paymentHandler.GetTransaction)).Methods("GET")

	// Generated receipts are served back at the path stored on the record.
	router.PathPrefix("/receipts/").Handler(http.StripPrefix("/receipts/", http.FileServer(http.Dir(cfg.ReceiptDir))))

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Printf("Server running on port %s", cfg.Server.Port)
	log.Fatal(server.ListenAndServe())
}
