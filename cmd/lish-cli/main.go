// lish-cli is a terminal front end for the Lish ordering backend, standing in
// for the mobile screens: sign in, browse the menu, work the cart, check out.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/lish_client/internal/api"
	"github.com/fjod/lish_client/internal/cart"
	"github.com/fjod/lish_client/internal/catalog"
	"github.com/fjod/lish_client/internal/checkout"
	"github.com/fjod/lish_client/internal/session"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	APIBaseURL string
	RedisAddr  string
	DeviceID   string
	Tracing    bool
}

func loadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using system environment")
	}
	return &Config{
		APIBaseURL: getEnv("LISH_API_URL", "http://localhost:8080"),
		RedisAddr:  getEnv("LISH_REDIS_ADDR", ""),
		DeviceID:   getEnv("LISH_DEVICE_ID", "cli"),
		Tracing:    getEnv("LISH_TRACING", "") != "",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type app struct {
	sessions session.Store
	client   *api.Client
	cart     *cart.Synchronizer
	menu     *catalog.Service
	checkout *checkout.Service
}

func main() {
	cfg := loadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		sessions = session.NewRedisStore(redisClient, cfg.DeviceID)
	} else {
		sessions = session.NewMemoryStore()
	}

	opts := []api.Option{}
	if cfg.Tracing {
		opts = append(opts, api.WithTracing())
	}
	client := api.New(cfg.APIBaseURL, sessions, opts...)

	sync := cart.NewSynchronizer(client, sessions)
	sync.OnAuthExpired(func() {
		fmt.Println("session expired, please sign in again")
	})

	a := &app{
		sessions: sessions,
		client:   client,
		cart:     sync,
		menu:     catalog.NewService(client),
		checkout: checkout.NewService(client, sync, sessions),
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, api.UserMessage(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`usage: lish-cli <command> [args]

  login <email> <password>       sign in
  logout                         sign out
  register <name> <email> <phone> <password>
  menu                           list products
  cart                           show the cart
  add <product-id>               add one unit
  rm <product-id>                remove one unit
  setqty <line-id> <quantity>    set absolute quantity
  del <line-id>                  delete a line (asks first)
  clear                          empty the cart
  select <line-id>               toggle line selection
  selectall                      toggle all selections
  checkout <name> <phone> <address> [note]
  orders                         order history`)
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <email> <password>")
		}
		sess, err := a.client.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if err := a.sessions.Save(ctx, sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		fmt.Printf("signed in as %s\n", sess.Email)
		return nil

	case "logout":
		if err := a.sessions.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil

	case "register":
		if len(args) != 4 {
			return errors.New("usage: register <name> <email> <phone> <password>")
		}
		req := api.RegisterRequest{FullName: args[0], Email: args[1], Phone: args[2], Password: args[3]}
		if err := a.client.Register(ctx, req); err != nil {
			return err
		}
		fmt.Println("account created, you can sign in now")
		return nil

	case "menu":
		products, err := a.menu.ListProducts(ctx)
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Printf("%4d  %-30s %10dđ\n", p.ID, p.Name, p.Price)
		}
		return nil

	case "cart":
		return a.showCart(ctx)

	case "add":
		productID, err := argInt64(args, 0, "product-id")
		if err != nil {
			return err
		}
		product, err := a.menu.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := a.cart.AddItem(ctx, *product); err != nil {
			return err
		}
		return a.showCart(ctx)

	case "rm":
		productID, err := argInt64(args, 0, "product-id")
		if err != nil {
			return err
		}
		if err := a.loadCart(ctx); err != nil {
			return err
		}
		if err := a.cart.DecrementItem(ctx, productID); err != nil {
			return err
		}
		return a.printCart()

	case "setqty":
		lineID, err := argInt64(args, 0, "line-id")
		if err != nil {
			return err
		}
		quantity, err := argInt(args, 1, "quantity")
		if err != nil {
			return err
		}
		if err := a.loadCart(ctx); err != nil {
			return err
		}
		if err := a.cart.SetQuantity(ctx, lineID, quantity); err != nil {
			return err
		}
		return a.printCart()

	case "del":
		lineID, err := argInt64(args, 0, "line-id")
		if err != nil {
			return err
		}
		if !confirm(fmt.Sprintf("delete line %d from the cart?", lineID)) {
			return nil
		}
		if err := a.loadCart(ctx); err != nil {
			return err
		}
		if err := a.cart.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		return a.printCart()

	case "clear":
		if !confirm("remove everything from the cart?") {
			return nil
		}
		if err := a.loadCart(ctx); err != nil {
			return err
		}
		if err := a.cart.ClearCart(ctx); err != nil {
			return err
		}
		fmt.Println("cart is empty")
		return nil

	case "select":
		lineID, err := argInt64(args, 0, "line-id")
		if err != nil {
			return err
		}
		if err := a.loadCart(ctx); err != nil {
			return err
		}
		a.cart.ToggleSelect(lineID)
		return a.printCart()

	case "selectall":
		if err := a.loadCart(ctx); err != nil {
			return err
		}
		a.cart.ToggleSelectAll()
		return a.printCart()

	case "checkout":
		if len(args) < 3 {
			return errors.New("usage: checkout <name> <phone> <address> [note]")
		}
		if err := a.loadCart(ctx); err != nil {
			return err
		}
		info := checkout.ContactInfo{Name: args[0], Phone: args[1], Address: args[2]}
		if len(args) > 3 {
			info.Note = strings.Join(args[3:], " ")
		}
		order, err := a.checkout.PlaceOrder(ctx, info)
		if err != nil {
			return err
		}
		fmt.Printf("order %s placed, total %dđ\n", order.ID, order.TotalAmount)
		return nil

	case "orders":
		orders, err := a.checkout.History(ctx)
		if err != nil {
			return err
		}
		for _, o := range orders {
			fmt.Printf("%s  %-10s %10dđ  %s\n", o.CreatedAt.Format("2006-01-02 15:04"), o.Status, o.TotalAmount, o.ID)
		}
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) loadCart(ctx context.Context) error {
	if err := a.cart.Load(ctx); err != nil {
		// Non-fatal: show an empty cart rather than blocking.
		log.Printf("warning: %v", err)
	}
	return nil
}

func (a *app) showCart(ctx context.Context) error {
	if err := a.loadCart(ctx); err != nil {
		return err
	}
	return a.printCart()
}

func (a *app) printCart() error {
	snap := a.cart.Snapshot()
	if snap.IsEmpty() {
		fmt.Println("cart is empty")
		return nil
	}
	for _, l := range snap.Lines {
		mark := " "
		if a.cart.Selected(l.LineID) {
			mark = "x"
		}
		fmt.Printf("[%s] line %-4d %-30s x%-3d %10dđ\n", mark, l.LineID, l.Name, l.Quantity, l.Subtotal())
	}
	fmt.Printf("total (%d selected): %dđ\n", a.cart.SelectedCount(), a.cart.TotalPrice())
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func argInt64(args []string, i int, name string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func argInt(args []string, i int, name string) (int, error) {
	v, err := argInt64(args, i, name)
	return int(v), err
}
