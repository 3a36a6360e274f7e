package service_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/internal/orders/orderstest"
	"callcenter_backend/internal/orders/service"
	"callcenter_backend/internal/orders/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordingObserver struct {
	results []ledger.Result
}

func (r *recordingObserver) Committed(_ context.Context, res ledger.Result) {
	r.results = append(r.results, res)
}

type fakeSync struct {
	calls []domain.Order
	err   error
}

func (f *fakeSync) Sync(_ context.Context, order domain.Order) error {
	f.calls = append(f.calls, order)
	return f.err
}

type fixture struct {
	svc      *service.Service
	store    *orderstest.Store
	observer *recordingObserver
	sync     *fakeSync
}

func newFixture() fixture {
	store := orderstest.New()
	observer := &recordingObserver{}
	sync := &fakeSync{}
	svc := service.New(store, observer, sync, phone.NewNormalizer("MK"), logger.Discard())
	return fixture{svc: svc, store: store, observer: observer, sync: sync}
}

func completeCustomer() domain.Customer {
	return domain.Customer{Name: "Jane Doe", Phone: "+38970000000", City: "Skopje", Address: "Partizanska 1"}
}

func actor(roles ...string) access.Actor {
	return access.NewActor(uuid.New(), "Tester", roles)
}

func setStatus(t *testing.T, f fixture, who access.Actor, orderID uuid.UUID, status string) (transport.StatusChangeResponse, error) {
	t.Helper()
	return f.svc.UpdateStatus(context.Background(), who, orderID, transport.UpdateStatusRequest{Status: status})
}

func TestAgentCannotShip(t *testing.T) {
	f := newFixture()
	order := f.store.AddOrder(domain.Order{Customer: completeCustomer(), Status: domain.StatusPending})

	_, err := setStatus(t, f, actor("agent"), order.ID, "shipped")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if !strings.Contains(appErr.Message, "pending, take, call_again, confirmed") {
		t.Fatalf("expected allowed set in message, got %q", appErr.Message)
	}
	details, _ := appErr.Details.(map[string]interface{})
	if got := details["allowedStatuses"]; !reflect.DeepEqual(got, []string{"pending", "take", "call_again", "confirmed"}) {
		t.Fatalf("unexpected allowed statuses %v", got)
	}
	if f.store.Orders[order.ID].Status != domain.StatusPending || len(f.store.History) != 0 {
		t.Fatalf("expected order untouched")
	}
}

func TestConfirmWithInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture()
	product := f.store.AddProduct("Blender", 2, 0)
	order := f.store.AddOrder(domain.Order{
		ProductID: &product.ID, Quantity: 3, Customer: completeCustomer(), Status: domain.StatusPending,
	})

	_, err := setStatus(t, f, actor("agent"), order.ID, "confirmed")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if shortage := appErr.Details.(apperr.StockShortage); shortage.Available != 2 || shortage.Required != 3 {
		t.Fatalf("expected available=2 required=3, got %+v", shortage)
	}
	if f.store.Products[product.ID].Stock != 2 {
		t.Fatalf("expected stock unchanged")
	}
	if f.store.Orders[order.ID].Status != domain.StatusPending {
		t.Fatalf("expected status unchanged")
	}
	if len(f.store.Movements) != 0 || len(f.store.History) != 0 {
		t.Fatalf("expected no ledger or history rows")
	}
}

func TestConfirmDeductsStockAndWritesHistory(t *testing.T) {
	f := newFixture()
	product := f.store.AddProduct("Blender", 5, 0)
	order := f.store.AddOrder(domain.Order{
		ProductID: &product.ID, Quantity: 3, Customer: completeCustomer(), Status: domain.StatusPending,
	})
	who := actor("agent")

	resp, err := setStatus(t, f, who, order.ID, "confirmed")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if f.store.Products[product.ID].Stock != 2 {
		t.Fatalf("expected stock 2, got %d", f.store.Products[product.ID].Stock)
	}
	movements := f.store.MovementsFor(product.ID)
	if len(movements) != 1 || movements[0].Change != -3 || movements[0].Type != ledger.MovementOrderDeduction {
		t.Fatalf("expected one -3 deduction, got %+v", movements)
	}
	if movements[0].OrderID == nil || *movements[0].OrderID != order.ID {
		t.Fatalf("expected movement linked to order")
	}
	history := f.store.HistoryFor(order.ID)
	if len(history) != 1 || *history[0].FromStatus != domain.StatusPending || history[0].ToStatus != domain.StatusConfirmed {
		t.Fatalf("expected one pending->confirmed row, got %+v", history)
	}
	if history[0].ChangedBy == nil || *history[0].ChangedBy != who.ID {
		t.Fatalf("expected history attributed to actor")
	}
	if !resp.Changed || resp.Stock == nil || resp.Stock.NewStock != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(f.observer.results) != 1 {
		t.Fatalf("expected observer to see the deduction after commit")
	}
}

func TestReconfirmDoesNotDeductAgain(t *testing.T) {
	f := newFixture()
	product := f.store.AddProduct("Blender", 5, 0)
	order := f.store.AddOrder(domain.Order{
		ProductID: &product.ID, Quantity: 1, Customer: completeCustomer(), Status: domain.StatusConfirmed,
	})

	resp, err := setStatus(t, f, actor("manager"), order.ID, "confirmed")
	if err != nil {
		t.Fatalf("reconfirm: %v", err)
	}
	if resp.Changed || len(f.store.History) != 0 || f.store.Products[product.ID].Stock != 5 {
		t.Fatalf("expected a no-op, got %+v", resp)
	}
}

func TestShippingAfterConfirmDoesNotCheckStock(t *testing.T) {
	f := newFixture()
	product := f.store.AddProduct("Blender", 0, 0)
	order := f.store.AddOrder(domain.Order{
		ProductID: &product.ID, Quantity: 4, Customer: completeCustomer(), Status: domain.StatusConfirmed,
	})

	if _, err := setStatus(t, f, actor("warehouse"), order.ID, "shipped"); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if len(f.store.Movements) != 0 {
		t.Fatalf("expected no stock movement on shipping")
	}
}

func TestCompletenessGate(t *testing.T) {
	f := newFixture()
	order := f.store.AddOrder(domain.Order{
		Customer: domain.Customer{Name: "Jane", Phone: "+38970000000", City: "  "},
		Status:   domain.StatusTake,
	})

	_, err := setStatus(t, f, actor("admin"), order.ID, "cancelled")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if !strings.Contains(appErr.Message, service.ContactDetailsClass) {
		t.Fatalf("expected field class in message, got %q", appErr.Message)
	}
	details := appErr.Details.(map[string]interface{})
	if !reflect.DeepEqual(details["missingFields"], []string{"customerCity", "customerAddress"}) {
		t.Fatalf("unexpected missing fields %v", details["missingFields"])
	}

	if _, err := setStatus(t, f, actor("admin"), order.ID, "trashed"); err != nil {
		t.Fatalf("expected trashed without completeness, got %v", err)
	}
}

func TestHistoryFollowsTransitionSequence(t *testing.T) {
	f := newFixture()
	order := f.store.AddOrder(domain.Order{Customer: completeCustomer(), Status: domain.StatusPending})
	sequence := []domain.Status{
		domain.StatusTake, domain.StatusCallAgain, domain.StatusConfirmed,
		domain.StatusShipped, domain.StatusDelivered, domain.StatusPaid,
	}

	for _, s := range sequence {
		if _, err := setStatus(t, f, actor("manager"), order.ID, string(s)); err != nil {
			t.Fatalf("set %s: %v", s, err)
		}
	}

	history := f.store.HistoryFor(order.ID)
	if len(history) != len(sequence) {
		t.Fatalf("expected %d history rows, got %d", len(sequence), len(history))
	}
	prev := domain.StatusPending
	for i, e := range history {
		if *e.FromStatus != prev || e.ToStatus != sequence[i] {
			t.Fatalf("row %d: expected %s->%s, got %s->%s", i, prev, sequence[i], *e.FromStatus, e.ToStatus)
		}
		prev = e.ToStatus
	}
}

func TestInboundLeadOrderIsSyncedAfterCommit(t *testing.T) {
	f := newFixture()
	leadID := uuid.New()
	order := f.store.AddOrder(domain.Order{
		Customer: completeCustomer(), Status: domain.StatusPending,
		SourceType: domain.SourceInboundLead, SourceLeadID: &leadID,
	})

	resp, err := setStatus(t, f, actor("agent"), order.ID, "take")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if len(f.sync.calls) != 1 || f.sync.calls[0].Status != domain.StatusTake {
		t.Fatalf("expected one sync with the committed status, got %+v", f.sync.calls)
	}
	if len(resp.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", resp.Warnings)
	}
}

func TestSyncFailureIsAWarningNotAnError(t *testing.T) {
	f := newFixture()
	f.sync.err = errors.New("lead row locked")
	leadID := uuid.New()
	order := f.store.AddOrder(domain.Order{
		Customer: completeCustomer(), Status: domain.StatusPending,
		SourceType: domain.SourceInboundLead, SourceLeadID: &leadID,
	})

	resp, err := setStatus(t, f, actor("agent"), order.ID, "call_again")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if f.store.Orders[order.ID].Status != domain.StatusCallAgain {
		t.Fatalf("expected committed status to stay")
	}
	if !reflect.DeepEqual(resp.Warnings, []string{service.SyncWarning}) {
		t.Fatalf("expected sync warning, got %v", resp.Warnings)
	}
}

func TestManualOrdersAreNotSynced(t *testing.T) {
	f := newFixture()
	order := f.store.AddOrder(domain.Order{Customer: completeCustomer(), Status: domain.StatusPending})

	if _, err := setStatus(t, f, actor("agent"), order.ID, "take"); err != nil {
		t.Fatalf("take: %v", err)
	}
	if len(f.sync.calls) != 0 {
		t.Fatalf("expected no sync for manual orders")
	}
}

func TestFailedHistoryWriteRollsBackDeduction(t *testing.T) {
	f := newFixture()
	product := f.store.AddProduct("Blender", 5, 0)
	order := f.store.AddOrder(domain.Order{
		ProductID: &product.ID, Quantity: 3, Customer: completeCustomer(), Status: domain.StatusPending,
	})
	f.store.FailHistory = errors.New("connection reset")

	_, err := setStatus(t, f, actor("agent"), order.ID, "confirmed")
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected storage text to stay internal, got %q", err.Error())
	}
	if f.store.Products[product.ID].Stock != 5 || len(f.store.Movements) != 0 {
		t.Fatalf("expected deduction rolled back")
	}
}

func TestUnknownStatusAndOrder(t *testing.T) {
	f := newFixture()
	order := f.store.AddOrder(domain.Order{Status: domain.StatusPending})

	if _, err := setStatus(t, f, actor("admin"), order.ID, "archived"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := setStatus(t, f, actor("admin"), uuid.New(), "take"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateManualOrder(t *testing.T) {
	f := newFixture()
	product := f.store.AddProduct("Kettle", 10, 0)
	agent := actor("agent")

	resp, err := f.svc.Create(context.Background(), agent, transport.CreateOrderRequest{
		CustomerName:  "Jane",
		CustomerPhone: "070 123 456",
		ProductID:     &product.ID,
		Quantity:      2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Status != "pending" || resp.SourceType != "manual" || resp.ProductName != "Kettle" {
		t.Fatalf("unexpected order %+v", resp)
	}
	if resp.UnitPrice != "10.00" || resp.Total != "20.00" {
		t.Fatalf("expected product price to be copied, got %s / %s", resp.UnitPrice, resp.Total)
	}
	if resp.CustomerPhone != "+38970123456" {
		t.Fatalf("expected normalized phone, got %q", resp.CustomerPhone)
	}
	if resp.Assignment.AgentID == nil || *resp.Assignment.AgentID != agent.ID {
		t.Fatalf("expected agent to be assigned to own order")
	}
	history := f.store.HistoryFor(resp.ID)
	if len(history) != 1 || history[0].FromStatus != nil || history[0].ToStatus != domain.StatusPending {
		t.Fatalf("expected creation history row, got %+v", history)
	}
	if f.store.Products[product.ID].Stock != 10 {
		t.Fatalf("expected no stock change on create")
	}
}

func TestUpdateRejectsProductEditsAfterDeduction(t *testing.T) {
	f := newFixture()
	order := f.store.AddOrder(domain.Order{
		Customer: completeCustomer(), Status: domain.StatusShipped, Quantity: 1, UnitPrice: decimal.NewFromInt(5),
	})
	qty := 4

	_, err := f.svc.Update(context.Background(), actor("admin"), order.ID, transport.UpdateOrderRequest{Quantity: &qty})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	city := "Bitola"
	resp, err := f.svc.Update(context.Background(), actor("admin"), order.ID, transport.UpdateOrderRequest{CustomerCity: &city})
	if err != nil {
		t.Fatalf("update city: %v", err)
	}
	if resp.CustomerCity != "Bitola" || resp.Quantity != 1 {
		t.Fatalf("unexpected order %+v", resp)
	}
}

func TestCancelledOrderKeepsProductLineAfterDeduction(t *testing.T) {
	f := newFixture()
	blender := f.store.AddProduct("Blender", 5, 0)
	kettle := f.store.AddProduct("Kettle", 5, 0)
	order := f.store.AddOrder(domain.Order{
		ProductID: &blender.ID, Quantity: 2, Customer: completeCustomer(), Status: domain.StatusPending,
	})
	admin := actor("admin")

	if _, err := setStatus(t, f, admin, order.ID, "confirmed"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := setStatus(t, f, admin, order.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.svc.Update(context.Background(), admin, order.ID, transport.UpdateOrderRequest{ProductID: &kettle.ID})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict swapping product on a deducted order, got %v", err)
	}
	if got := f.store.Orders[order.ID].ProductID; got == nil || *got != blender.ID {
		t.Fatalf("expected product unchanged, got %v", got)
	}

	fresh := f.store.AddOrder(domain.Order{
		ProductID: &blender.ID, Quantity: 1, Customer: completeCustomer(), Status: domain.StatusCancelled,
	})
	resp, err := f.svc.Update(context.Background(), admin, fresh.ID, transport.UpdateOrderRequest{ProductID: &kettle.ID})
	if err != nil {
		t.Fatalf("expected edit on a never-confirmed order, got %v", err)
	}
	if resp.ProductID == nil || *resp.ProductID != kettle.ID {
		t.Fatalf("expected kettle on the order, got %+v", resp)
	}
}

func TestAllowedStatusesForDualRoleActor(t *testing.T) {
	f := newFixture()
	order := f.store.AddOrder(domain.Order{Status: domain.StatusPending})

	resp, err := f.svc.AllowedStatuses(context.Background(), actor("agent", "warehouse"), order.ID)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	want := []string{"pending", "take", "call_again", "confirmed", "shipped", "paid"}
	if !reflect.DeepEqual(resp.Allowed, want) {
		t.Fatalf("expected %v, got %v", want, resp.Allowed)
	}
}
