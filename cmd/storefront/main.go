package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tastebite/storefront/internal/api"
	"github.com/tastebite/storefront/internal/cart"
	"github.com/tastebite/storefront/internal/catalog"
	"github.com/tastebite/storefront/internal/checkout"
	"github.com/tastebite/storefront/internal/money"
	"github.com/tastebite/storefront/internal/payment"
	"github.com/tastebite/storefront/internal/session"
)

type Config struct {
	BackendURL     string
	UserToken      string
	UserEmail      string
	UserName       string
	RedisAddr      string
	CurrencyPrefix string
	DeliveryFee    float64
}

func loadConfig() *Config {
	return &Config{
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:5000"),
		UserToken:      os.Getenv("USER_TOKEN"),
		UserEmail:      getEnv("USER_EMAIL", "demo@tastebite.dev"),
		UserName:       getEnv("USER_NAME", "Demo User"),
		RedisAddr:      os.Getenv("REDIS_ADDR"), // empty -> in-process cache
		CurrencyPrefix: getEnv("CURRENCY_PREFIX", money.DefaultCurrencyPrefix),
		DeliveryFee:    120,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type logNotifier struct{}

func (logNotifier) Notify(e cart.Event) {
	if e.Err != nil {
		log.Printf("cart: %s (product=%s item=%s): %v", e.Kind, e.ProductID, e.LineItemID, e.Err)
		return
	}
	log.Printf("cart: %s (product=%s)", e.Kind, e.ProductID)
}

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Identity: prefer a backend-issued token, fall back to explicit env.
	var sess session.Session
	if cfg.UserToken != "" {
		var err error
		sess, err = session.FromToken(cfg.UserToken)
		if err != nil {
			log.Fatalf("Failed to read user token: %v", err)
		}
	} else {
		sess = session.New(cfg.UserEmail, cfg.UserName)
	}
	sessions := session.NewStore()
	sessions.SignIn(sess)
	log.Printf("Signed in as %s <%s>", sess.Name, sess.Email)

	var opts []api.Option
	if sess.Token != "" {
		opts = append(opts, api.WithToken(sess.Token))
	}
	client := api.NewClient(cfg.BackendURL, opts...)

	var cache catalog.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		log.Printf("Catalog cache on Redis at %s", cfg.RedisAddr)
		cache = catalog.NewRedisCache(redisClient)
	} else {
		cache = catalog.NewMemoryCache(0)
	}

	reader := catalog.NewReader(client, cache)
	store := cart.NewStore(client, sess, logNotifier{}, cart.Config{
		DeliveryFee:    cfg.DeliveryFee,
		CurrencyPrefix: cfg.CurrencyPrefix,
	})
	builder := checkout.NewBuilder(client, store, sess)
	adapter := payment.NewAdapter(client, store, &payment.SimulatedConfirmer{}, builder)

	if err := run(ctx, cfg, reader, store, adapter); err != nil {
		log.Fatalf("Storefront session failed: %v", err)
	}
}

// run walks one full browse -> add -> pay session against the configured
// backend. It doubles as a smoke check for a deployed backend.
func run(ctx context.Context, cfg *Config, reader *catalog.Reader, store *cart.Store, adapter *payment.Adapter) error {
	products, err := reader.List(ctx, catalog.Filter{})
	if err != nil {
		return err
	}
	log.Printf("Catalog holds %d products", len(products))
	if len(products) == 0 {
		log.Println("Nothing to order, done")
		return nil
	}

	pick := products[0]
	variant := map[string]string{}
	for _, v := range pick.Variants {
		if len(v.Options) > 0 {
			variant[v.Name] = v.Options[0]
		}
	}
	if err := store.Add(ctx, cart.Selection{
		ProductID: pick.ID,
		Title:     pick.Title,
		Image:     pick.Image(),
		UnitPrice: pick.BasePrice.Float64(),
		Quantity:  1,
		Variant:   variant,
	}); err != nil {
		return err
	}

	totals := store.Totals()
	log.Printf("Cart: %d items, subtotal %s, delivery %s, total %s",
		store.Len(),
		money.Format(cfg.CurrencyPrefix, totals.Subtotal),
		money.Format(cfg.CurrencyPrefix, totals.DeliveryFee),
		store.FormatTotal())

	if err := adapter.Prepare(ctx); err != nil {
		return err
	}

	form := checkout.NewForm(store.Session())
	form.Phone = getEnv("SHIP_PHONE", "01700000000")
	form.Address = getEnv("SHIP_ADDRESS", "12 Lake Road")
	form.City = getEnv("SHIP_CITY", "Dhaka")

	result, err := adapter.Confirm(ctx, form)
	if err != nil {
		return err
	}
	log.Printf("Order recorded: %s (session %s)", result.OrderID, adapter.Status())
	return nil
}
