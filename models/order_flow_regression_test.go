package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/farmdirect/marketplace_backend/workflow"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestOrderLifecycle_CheckoutPaymentFulfillment(t *testing.T) {
	db, ctx := setupIntegrationDB(t)

	farmerCtx, consumerCtx, farm, deliveryOption := seedMarketplace(t, db, ctx)

	tomatoes := seedSellableProduct(t, db, farmerCtx, farm.ID, "Heirloom Tomatoes", "heirloom-tomatoes", "4.50", 120)
	eggs := seedSellableProduct(t, db, farmerCtx, farm.ID, "Pasture Eggs", "pasture-eggs", "6.50", 40)

	// Only active products are listed, for one farm or for all.
	if _, err := models.CreateProduct(db, farmerCtx, &models.NewProduct{
		FarmId: farm.ID,
		Name:   "Winter Squash",
		Slug:   "winter-squash",
		Unit:   "each",
		Price:  mustDec(t, "3.00"),
	}); err != nil {
		t.Fatalf("CreateProduct(draft): %v", err)
	}
	for _, tc := range []struct {
		farmId int
		want   int
	}{
		{0, 2},
		{farm.ID, 2},
		{farm.ID + 99, 0},
	} {
		listed, err := models.ListActiveProducts(db, ctx, tc.farmId)
		if err != nil {
			t.Fatalf("ListActiveProducts(%d): %v", tc.farmId, err)
		}
		if len(listed) != tc.want {
			t.Fatalf("ListActiveProducts(%d): expected %d products, got %d", tc.farmId, tc.want, len(listed))
		}
	}

	// 1) Ledger history: opening stock 120, restock +150, sale -3.
	for _, adj := range []models.NewInventoryAdjustment{
		{ProductId: tomatoes.ID, QuantityChange: 150, AdjustmentType: models.InventoryAdjustmentTypeRestock},
		{ProductId: tomatoes.ID, QuantityChange: -3, AdjustmentType: models.InventoryAdjustmentTypeSale},
	} {
		applyAdjustment(t, db, farmerCtx, adj)
	}
	assertStock(t, db, ctx, tomatoes.ID, 267)

	// 2) A sale that would overdraw the ledger is rejected.
	tx := db.Begin()
	_, err := models.RecordAdjustment(tx, farmerCtx, &models.NewInventoryAdjustment{
		ProductId:      tomatoes.ID,
		QuantityChange: -300,
		AdjustmentType: models.InventoryAdjustmentTypeSale,
	}, nil)
	tx.Rollback()
	if !utils.IsInsufficientStockError(err) {
		t.Fatalf("expected InsufficientStockError on overdraw, got %v", err)
	}
	assertStock(t, db, ctx, tomatoes.ID, 267)

	// 3) Checkout: 2 lb tomatoes + 2 dozen eggs through local delivery.
	for _, item := range []models.NewCartItem{
		{ProductId: tomatoes.ID, DeliveryOptionId: deliveryOption.ID, Quantity: 2},
		{ProductId: eggs.ID, DeliveryOptionId: deliveryOption.ID, Quantity: 2},
	} {
		if _, err := models.AddCartItem(db, consumerCtx, &item); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
	}
	order, err := workflow.PlaceOrder(db, consumerCtx, &workflow.PlaceOrderInput{
		DeliveryAddress: "12 Orchard Lane, Portland, OR 97201",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected new order PENDING, got %s", order.Status)
	}
	if !order.Subtotal.Equal(mustDec(t, "22.00")) {
		t.Fatalf("expected subtotal 22.00, got %s", order.Subtotal)
	}
	if !order.ShippingFee.Equal(mustDec(t, "7.50")) {
		t.Fatalf("expected shipping 7.50, got %s", order.ShippingFee)
	}
	if err := models.ValidateTotals(order); err != nil {
		t.Fatalf("placed order violates the totals identity: %v", err)
	}
	if !regexp.MustCompile(`^FD-\d{8}-[0-9A-F]{6}$`).MatchString(order.OrderNumber) {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}

	// Checkout decrements stock through the ledger.
	assertStock(t, db, ctx, tomatoes.ID, 265)
	assertStock(t, db, ctx, eggs.ID, 38)

	// The cart is emptied.
	cart, err := models.GetCart(db, consumerCtx)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart after checkout, found %d items", len(cart.Items))
	}

	fulfillments, err := models.ListOrderFulfillments(db, ctx, order.ID)
	if err != nil {
		t.Fatalf("ListOrderFulfillments: %v", err)
	}
	if len(fulfillments) != 1 {
		t.Fatalf("expected one fulfillment for a single-farm order, got %d", len(fulfillments))
	}
	fulfillment := fulfillments[0]
	if fulfillment.Status != models.FulfillmentStatusPreparing {
		t.Fatalf("expected fulfillment PREPARING, got %s", fulfillment.Status)
	}
	if fulfillment.FarmId != farm.ID {
		t.Fatalf("fulfillment bound to farm %d, expected %d", fulfillment.FarmId, farm.ID)
	}

	// 4) A partial payment is not enough to confirm.
	if _, err := workflow.RecordPayment(db, consumerCtx, workflow.LocalPaymentProvider{}, &workflow.RecordPaymentInput{
		OrderId: order.ID,
		Amount:  mustDec(t, "10.00"),
		Method:  "card",
	}); err != nil {
		t.Fatalf("RecordPayment(partial): %v", err)
	}
	reloaded := mustGetOrder(t, db, ctx, order.ID)
	if reloaded.Status != models.OrderStatusPending {
		t.Fatalf("partial payment should leave order PENDING, got %s", reloaded.Status)
	}

	// A charge above the outstanding balance never reaches the provider.
	_, err = workflow.RecordPayment(db, consumerCtx, workflow.LocalPaymentProvider{}, &workflow.RecordPaymentInput{
		OrderId: order.ID,
		Amount:  order.Total,
		Method:  "card",
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError for overpayment, got %v", err)
	}

	// A replayed webhook carrying the same provider reference reports
	// the original payment instead of recording a second one.
	replayer := fixedRefProvider{reference: "gw_replay_001"}
	first, err := workflow.RecordPayment(db, consumerCtx, replayer, &workflow.RecordPaymentInput{
		OrderId: order.ID,
		Amount:  mustDec(t, "5.00"),
		Method:  "card",
	})
	if err != nil {
		t.Fatalf("RecordPayment(replayed, first): %v", err)
	}
	second, err := workflow.RecordPayment(db, consumerCtx, replayer, &workflow.RecordPaymentInput{
		OrderId: order.ID,
		Amount:  mustDec(t, "5.00"),
		Method:  "card",
	})
	if err != nil {
		t.Fatalf("RecordPayment(replayed, second): %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replayed charge recorded twice: payment %d and %d", first.ID, second.ID)
	}
	paid, err := models.PaidAmount(db, ctx, order.ID)
	if err != nil {
		t.Fatalf("PaidAmount: %v", err)
	}
	if !paid.Equal(mustDec(t, "15.00")) {
		t.Fatalf("expected 15.00 paid after the replay, got %s", paid)
	}
	reloaded = mustGetOrder(t, db, ctx, order.ID)
	if reloaded.Status != models.OrderStatusPending {
		t.Fatalf("half-paid order must stay PENDING after a replay, got %s", reloaded.Status)
	}

	// 5) Covering the remainder confirms the order.
	if _, err := workflow.RecordPayment(db, consumerCtx, workflow.LocalPaymentProvider{}, &workflow.RecordPaymentInput{
		OrderId: order.ID,
		Amount:  order.Total.Sub(mustDec(t, "15.00")),
		Method:  "card",
	}); err != nil {
		t.Fatalf("RecordPayment(remainder): %v", err)
	}
	reloaded = mustGetOrder(t, db, ctx, order.ID)
	if reloaded.Status != models.OrderStatusConfirmed {
		t.Fatalf("expected order CONFIRMED once payments cover the total, got %s", reloaded.Status)
	}

	// Nothing is outstanding on a fully paid order.
	_, err = workflow.RecordPayment(db, consumerCtx, workflow.LocalPaymentProvider{}, &workflow.RecordPaymentInput{
		OrderId: order.ID,
		Amount:  mustDec(t, "0.01"),
		Method:  "card",
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError on a fully paid order, got %v", err)
	}

	// 6) Advance the fulfillment through the delivery branch; the order
	// follows its least-advanced fulfillment.
	if _, err := workflow.AdvanceFulfillment(db, farmerCtx, fulfillment.ID, models.FulfillmentStatusInTransit); err != nil {
		t.Fatalf("AdvanceFulfillment(IN_TRANSIT): %v", err)
	}
	reloaded = mustGetOrder(t, db, ctx, order.ID)
	if reloaded.Status != models.OrderStatusInTransit {
		t.Fatalf("expected order IN_TRANSIT, got %s", reloaded.Status)
	}

	if _, err := workflow.AdvanceFulfillment(db, farmerCtx, fulfillment.ID, models.FulfillmentStatusDelivered); err != nil {
		t.Fatalf("AdvanceFulfillment(DELIVERED): %v", err)
	}
	reloaded = mustGetOrder(t, db, ctx, order.ID)
	if reloaded.Status != models.OrderStatusDelivered {
		t.Fatalf("expected order DELIVERED, got %s", reloaded.Status)
	}

	// 7) Terminal fulfillments admit no further transitions.
	_, err = workflow.AdvanceFulfillment(db, farmerCtx, fulfillment.ID, models.FulfillmentStatusInTransit)
	if !utils.IsInvalidTransitionError(err) {
		t.Fatalf("expected InvalidTransitionError on terminal fulfillment, got %v", err)
	}

	// 8) The status audit trail recorded every hop.
	var changes []models.OrderStatusChange
	if err := db.WithContext(ctx).Where("order_id = ?", order.ID).Order("id").Find(&changes).Error; err != nil {
		t.Fatalf("load status changes: %v", err)
	}
	wantTrail := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusInTransit,
		models.OrderStatusDelivered,
	}
	if len(changes) != len(wantTrail) {
		t.Fatalf("expected %d status changes, got %d", len(wantTrail), len(changes))
	}
	for i, change := range changes {
		if change.ToStatus != wantTrail[i] {
			t.Fatalf("status change %d: expected %s, got %s", i, wantTrail[i], change.ToStatus)
		}
	}

	// 9) Disabling a delivery option takes effect at the next checkout,
	// even for items already in a cart.
	if _, err := models.AddCartItem(db, consumerCtx, &models.NewCartItem{
		ProductId:        tomatoes.ID,
		DeliveryOptionId: deliveryOption.ID,
		Quantity:         1,
	}); err != nil {
		t.Fatalf("AddCartItem(second order): %v", err)
	}
	if err := db.WithContext(ctx).Model(&models.DeliveryOption{}).
		Where("id = ?", deliveryOption.ID).
		Update("is_enabled", false).Error; err != nil {
		t.Fatalf("disable delivery option: %v", err)
	}
	_, err = workflow.PlaceOrder(db, consumerCtx, &workflow.PlaceOrderInput{
		DeliveryAddress: "12 Orchard Lane, Portland, OR 97201",
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError for a disabled delivery option, got %v", err)
	}
}

// fixedRefProvider replays the same gateway reference on every charge,
// the shape of a webhook retry.
type fixedRefProvider struct {
	reference string
}

func (fixedRefProvider) Name() string { return "local" }

func (p fixedRefProvider) Charge(context.Context, decimal.Decimal, string) (*workflow.ChargeResult, error) {
	return &workflow.ChargeResult{
		Reference: p.reference,
		Status:    models.PaymentStatusSucceeded,
	}, nil
}

func (p fixedRefProvider) Refund(_ context.Context, reference string) (*workflow.ChargeResult, error) {
	return &workflow.ChargeResult{
		Reference: reference,
		Status:    models.PaymentStatusRefunded,
	}, nil
}

func TestAutoReorderSweep_IsIdempotentPerTargetDate(t *testing.T) {
	db, ctx := setupIntegrationDB(t)

	farmerCtx, consumerCtx, farm, deliveryOption := seedMarketplace(t, db, ctx)
	eggs := seedSellableProduct(t, db, farmerCtx, farm.ID, "Pasture Eggs", "pasture-eggs", "6.50", 40)

	now := time.Now().UTC().Truncate(time.Second)
	setting, err := models.CreateAutoReorderSetting(db, consumerCtx, &models.NewAutoReorderSetting{
		ProductId:        eggs.ID,
		DeliveryOptionId: deliveryOption.ID,
		Quantity:         1,
		Frequency:        models.FrequencyWeekly,
		NextOrderDate:    now,
	})
	if err != nil {
		t.Fatalf("CreateAutoReorderSetting: %v", err)
	}

	result, err := workflow.RunAutoReorderSweep(db, ctx, now)
	if err != nil {
		t.Fatalf("RunAutoReorderSweep: %v", err)
	}
	if result.Fired != 1 || result.Failed != 0 {
		t.Fatalf("first sweep: expected 1 fired, got %+v", result)
	}

	cart, err := models.GetCart(db, consumerCtx)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 1 {
		t.Fatalf("expected one cart item of quantity 1, got %+v", cart.Items)
	}

	var advanced models.AutoReorderSetting
	if err := db.WithContext(ctx).First(&advanced, setting.ID).Error; err != nil {
		t.Fatalf("reload setting: %v", err)
	}
	wantNext := models.FrequencyWeekly.NextDate(now)
	if !advanced.NextOrderDate.Equal(wantNext) {
		t.Fatalf("expected nextOrderDate %s, got %s", wantNext, advanced.NextOrderDate)
	}

	// Rewind the schedule to the already-fired date: the idempotency key
	// keeps a retried sweep from double-materializing.
	if err := db.WithContext(ctx).Model(&models.AutoReorderSetting{}).
		Where("id = ?", setting.ID).
		Update("next_order_date", now).Error; err != nil {
		t.Fatalf("rewind setting: %v", err)
	}
	result, err = workflow.RunAutoReorderSweep(db, ctx, now)
	if err != nil {
		t.Fatalf("RunAutoReorderSweep(retry): %v", err)
	}
	if result.Fired != 0 || result.Skipped != 1 {
		t.Fatalf("retried sweep: expected 0 fired 1 skipped, got %+v", result)
	}

	cart, err = models.GetCart(db, consumerCtx)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 1 {
		t.Fatalf("retried sweep must not change the cart, got %+v", cart.Items)
	}

	// A paused setting never fires even when due.
	if _, err := models.PauseAutoReorder(db, consumerCtx, setting.ID); err != nil {
		t.Fatalf("PauseAutoReorder: %v", err)
	}
	if err := db.WithContext(ctx).Model(&models.AutoReorderSetting{}).
		Where("id = ?", setting.ID).
		Update("next_order_date", now.AddDate(0, 0, -1)).Error; err != nil {
		t.Fatalf("re-date setting: %v", err)
	}
	result, err = workflow.RunAutoReorderSweep(db, ctx, now)
	if err != nil {
		t.Fatalf("RunAutoReorderSweep(paused): %v", err)
	}
	if result.Fired != 0 {
		t.Fatalf("paused setting fired: %+v", result)
	}
}

// --- shared fixtures -------------------------------------------------

func setupIntegrationDB(t *testing.T) (*gorm.DB, context.Context) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "farmdirect_test")

	db := config.ConnectDatabaseWithRetry()
	t.Cleanup(func() { config.CloseDatabase(db) })

	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, context.Background()
}

func seedMarketplace(t *testing.T, db *gorm.DB, ctx context.Context) (farmerCtx, consumerCtx context.Context, farm *models.Farm, deliveryOption *models.DeliveryOption) {
	t.Helper()

	farmer, err := models.CreateUser(db, ctx, &models.NewUser{
		Email:       "farmer@test.local",
		Password:    "password123",
		Role:        models.UserRoleFarmer,
		DisplayName: "Green Valley",
	})
	if err != nil {
		t.Fatalf("CreateUser(farmer): %v", err)
	}
	farmerCtx = utils.SetUserIdInContext(ctx, farmer.ID)

	consumer, err := models.CreateUser(db, ctx, &models.NewUser{
		Email:       "consumer@test.local",
		Password:    "password123",
		Role:        models.UserRoleConsumer,
		DisplayName: "Casey",
	})
	if err != nil {
		t.Fatalf("CreateUser(consumer): %v", err)
	}
	consumerCtx = utils.SetUserIdInContext(ctx, consumer.ID)

	farm, err = models.CreateFarm(db, farmerCtx, &models.NewFarm{
		Name: "Green Valley Farm",
		Slug: "green-valley-farm",
		City: "Hillsboro",
		DeliveryOptions: []models.NewDeliveryOption{
			{Type: models.DeliveryTypeLocalDelivery, Name: "Local delivery", Fee: mustDec(t, "7.50")},
		},
	})
	if err != nil {
		t.Fatalf("CreateFarm: %v", err)
	}
	if _, err := models.ActivateFarm(db, farmerCtx, farm.ID); err != nil {
		t.Fatalf("ActivateFarm: %v", err)
	}

	options, err := models.GetFarmDeliveryOptions(db, ctx, farm.ID)
	if err != nil || len(options) == 0 {
		t.Fatalf("GetFarmDeliveryOptions: %v", err)
	}
	return farmerCtx, consumerCtx, farm, options[0]
}

func seedSellableProduct(t *testing.T, db *gorm.DB, farmerCtx context.Context, farmId int, name, slug, price string, openingStock int) *models.Product {
	t.Helper()
	product, err := models.CreateProduct(db, farmerCtx, &models.NewProduct{
		FarmId:       farmId,
		Name:         name,
		Slug:         slug,
		Unit:         "each",
		Price:        mustDec(t, price),
		Status:       models.ProductStatusActive,
		OpeningStock: openingStock,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", name, err)
	}
	return product
}

func applyAdjustment(t *testing.T, db *gorm.DB, ctx context.Context, input models.NewInventoryAdjustment) {
	t.Helper()
	tx := db.Begin()
	if _, err := models.RecordAdjustment(tx, ctx, &input, nil); err != nil {
		tx.Rollback()
		t.Fatalf("RecordAdjustment(%+v): %v", input, err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit adjustment: %v", err)
	}
}

func assertStock(t *testing.T, db *gorm.DB, ctx context.Context, productId, expected int) {
	t.Helper()
	stock, err := models.CurrentStock(db, ctx, productId)
	if err != nil {
		t.Fatalf("CurrentStock(%d): %v", productId, err)
	}
	if stock != expected {
		t.Fatalf("product %d: expected ledger stock %d, got %d", productId, expected, stock)
	}
	product, err := models.GetProduct(db, ctx, productId)
	if err != nil {
		t.Fatalf("GetProduct(%d): %v", productId, err)
	}
	if product.StockCacheQty != expected {
		t.Fatalf("product %d: stock cache %d diverged from ledger %d", productId, product.StockCacheQty, expected)
	}
}

func mustGetOrder(t *testing.T, db *gorm.DB, ctx context.Context, id int) *models.Order {
	t.Helper()
	order, err := models.GetOrder(db, ctx, id)
	if err != nil {
		t.Fatalf("GetOrder(%d): %v", id, err)
	}
	return order
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

// --- docker helpers --------------------------------------------------

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("farmdirect-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=farmdirect_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
