package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/app"
	"distribution-backoffice/internal/core"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "orders", "ord", "o":
		var statusPtr *core.OrderStatus
		if len(args) > 1 {
			status := core.OrderStatus(args[1])
			statusPtr = &status
		}
		result, err := svc.ListOrders(ctx, statusPtr)
		if err != nil {
			log.Fatalf("Failed to list orders: %v", err)
		}
		printOrders(result.Orders)

	case "order":
		if len(args) < 2 {
			log.Fatal("Usage: backoffice order <id>")
		}
		result, err := svc.GetOrder(ctx, mustInt(args[1]))
		if err != nil {
			log.Fatalf("Failed to get order: %v", err)
		}
		printJSON(result.Order)

	case "status":
		if len(args) < 4 {
			log.Fatal("Usage: backoffice status <order-id> <new-status> <actor-role>")
		}
		result, err := svc.UpdateStatus(ctx, app.UpdateStatusRequest{
			OrderID:   mustInt(args[1]),
			NewStatus: core.OrderStatus(args[2]),
			Actor:     core.Role(args[3]),
		})
		if err != nil {
			log.Fatalf("Transition failed: %v", err)
		}
		fmt.Printf("Order %d is now %s (billed %s)\n",
			result.Order.ID, result.Order.Status, result.Order.BilledAmount.StringFixed(2))

	case "fulfill-all":
		if len(args) < 2 {
			log.Fatal("Usage: backoffice fulfill-all <order-id> [--confirm]")
		}
		confirm := len(args) > 2 && args[2] == "--confirm"
		result, err := svc.FulfillAll(ctx, mustInt(args[1]), confirm)
		if err != nil {
			log.Fatalf("Fulfill-all failed: %v", err)
		}
		fmt.Printf("Order %d fulfilled in full, total %s\n",
			result.Order.ID, result.Order.CurrentTotal().StringFixed(2))

	case "customers", "cust":
		result, err := svc.ListCustomers(ctx)
		if err != nil {
			log.Fatalf("Failed to list customers: %v", err)
		}
		printCustomers(result.Customers)

	case "balance", "bal":
		if len(args) < 2 {
			log.Fatal("Usage: backoffice balance <customer-id|code|name> [city]")
		}
		city := ""
		if len(args) > 2 {
			city = args[2]
		}
		result, err := svc.ResolveCustomer(ctx, args[1], city)
		if err != nil {
			log.Fatalf("Failed to get customer: %v", err)
		}
		fmt.Printf("%s (%s): own %s, displayed %s\n",
			result.Customer.Name, result.Customer.Code,
			result.Customer.Balance.StringFixed(2),
			result.DisplayedBalance.StringFixed(2))

	case "pay":
		if len(args) < 3 {
			log.Fatal("Usage: backoffice pay <customer-id> <amount> [remark]")
		}
		amount, err := decimal.NewFromString(args[2])
		if err != nil {
			log.Fatalf("Invalid amount: %v", err)
		}
		remark := ""
		if len(args) > 3 {
			remark = args[3]
		}
		result, err := svc.RecordPayment(ctx, app.RecordPaymentRequest{
			CustomerID: mustInt(args[1]),
			Amount:     amount,
			Remark:     remark,
		})
		if err != nil {
			log.Fatalf("Payment failed: %v", err)
		}
		fmt.Printf("Payment recorded; %s now at %s\n",
			result.Customer.Name, result.DisplayedBalance.StringFixed(2))

	case "stock":
		result, err := svc.ListItems(ctx)
		if err != nil {
			log.Fatalf("Failed to list items: %v", err)
		}
		printItems(result.Items)

	case "history", "hist":
		if len(args) < 2 {
			log.Fatal("Usage: backoffice history <item-id>")
		}
		result, err := svc.GetItemHistory(ctx, mustInt(args[1]))
		if err != nil {
			log.Fatalf("Failed to get history: %v", err)
		}
		printHistory(result.Logs)

	case "stock-room":
		result, err := svc.StockRoomProjection(ctx)
		if err != nil {
			log.Fatalf("Failed to project stock room: %v", err)
		}
		printStockRoom(result.Levels)

	case "finalize-return":
		if len(args) < 2 {
			log.Fatal("Usage: backoffice finalize-return <return-id>")
		}
		result, err := svc.FinalizeReturn(ctx, mustInt(args[1]))
		if err != nil {
			log.Fatalf("Finalize failed: %v", err)
		}
		fmt.Printf("Return %d finalized, credit %s\n",
			result.Return.ID, result.Return.TotalAmount.StringFixed(2))

	default:
		log.Fatalf("Unknown command: %s\nAvailable: orders, order, status, fulfill-all, customers, balance, pay, stock, history, stock-room, finalize-return", args[0])
	}
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("Invalid id %q: %v", s, err)
	}
	return n
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printOrders(orders []core.Order) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-6s %-10s %-24s %-12s %12s %12s\n", "ID", "STATUS", "CUSTOMER", "ASSIGNEE", "TOTAL", "BILLED")
	fmt.Println(strings.Repeat("-", 78))
	for _, o := range orders {
		fmt.Printf("  %-6d %-10s %-24s %-12s %12s %12s\n",
			o.ID, o.Status, o.CustomerName, o.AssignedToName,
			o.CurrentTotal().StringFixed(2), o.BilledAmount.StringFixed(2))
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printCustomers(customers []core.Customer) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("  %-6s %-10s %-28s %-10s %10s\n", "ID", "CODE", "NAME", "CITY", "BALANCE")
	fmt.Println(strings.Repeat("-", 70))
	for _, c := range customers {
		fmt.Printf("  %-6d %-10s %-28s %-10s %10s\n",
			c.ID, c.Code, c.Name, c.City, c.Balance.StringFixed(2))
	}
	fmt.Println(strings.Repeat("=", 70))
}

func printItems(items []core.InventoryItem) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("  %-6s %-16s %-20s %-10s %10s\n", "ID", "BRAND", "MODEL", "QUALITY", "QTY")
	fmt.Println(strings.Repeat("-", 70))
	for _, it := range items {
		fmt.Printf("  %-6d %-16s %-20s %-10s %10s\n",
			it.ID, it.Brand, it.Model, it.Quality, it.Quantity.StringFixed(0))
	}
	fmt.Println(strings.Repeat("=", 70))
}

func printHistory(logs []core.InventoryLog) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 92))
	fmt.Printf("  %-34s %10s %10s  %s\n", "LOG ID", "CHANGE", "STOCK", "REMARK")
	fmt.Println(strings.Repeat("-", 92))
	for _, l := range logs {
		fmt.Printf("  %-34s %10s %10s  %s\n",
			l.LogID, l.QuantityChange.StringFixed(0), l.CurrentStock.StringFixed(0), l.Remark)
	}
	fmt.Println(strings.Repeat("=", 92))
}

func printStockRoom(levels []core.StockRoomLevel) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 64))
	fmt.Printf("  %-16s %-20s %-10s %10s\n", "BRAND", "MODEL", "QUALITY", "QTY")
	fmt.Println(strings.Repeat("-", 64))
	for _, lv := range levels {
		fmt.Printf("  %-16s %-20s %-10s %10s\n",
			lv.Brand, lv.Model, lv.Quality, lv.Quantity.StringFixed(0))
	}
	fmt.Println(strings.Repeat("=", 64))
}
