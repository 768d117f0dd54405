package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/psds-microservice/lottery-service/internal/clock"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/model"
	"github.com/psds-microservice/lottery-service/internal/testutil"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestValidEmail(t *testing.T) {
	for email, want := range map[string]bool{
		"alice@example.com":  true,
		"A.B+c@sub.test.org": true,
		"alice@example":      false,
		"alice example@x.io": false,
		"@example.com":       false,
		"":                   false,
	} {
		require.Equal(t, want, ValidEmail(email), email)
	}
}

func TestClaim_IssuesTicket(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	svc := NewTicketService(db, clock.NewManual(testNow))

	res, err := svc.Claim(context.Background(), "S1", "alice@x.io")
	require.NoError(t, err)
	require.Equal(t, "Fountain", res.SpotName)
	require.Equal(t, model.TicketStatusIssued, res.Ticket.Status)
	require.Equal(t, "alice@x.io", res.Ticket.UserID)
	require.Regexp(t, `^TH\d{13}\d{3}$`, res.Ticket.SerialNumber)
	require.NotZero(t, res.Ticket.ID)
	require.Nil(t, res.Ticket.RedeemedAt)
}

func TestClaim_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	testutil.InsertSpot(t, db, "S9", "Closed", false)
	svc := NewTicketService(db, clock.NewManual(testNow))
	ctx := context.Background()

	_, err := svc.Claim(ctx, "", "alice@x.io")
	require.ErrorIs(t, err, errs.ErrMissingFields)
	_, err = svc.Claim(ctx, "S1", "")
	require.ErrorIs(t, err, errs.ErrMissingFields)
	_, err = svc.Claim(ctx, "S1", "not-an-email")
	require.ErrorIs(t, err, errs.ErrInvalidEmail)
	_, err = svc.Claim(ctx, "NOPE", "alice@x.io")
	require.ErrorIs(t, err, errs.ErrInvalidSpot)
	_, err = svc.Claim(ctx, "S9", "alice@x.io")
	require.ErrorIs(t, err, errs.ErrInvalidSpot)

	require.Zero(t, testutil.CountTickets(t, db, "1 = 1"))
}

func TestClaim_OnePerEmailAcrossSpots(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	testutil.InsertSpot(t, db, "S2", "Library", true)
	svc := NewTicketService(db, clock.NewManual(testNow))
	ctx := context.Background()

	_, err := svc.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "S2", "alice@x.io")
	require.ErrorIs(t, err, errs.ErrAlreadyClaimed)
	var ac *errs.AlreadyClaimedError
	require.True(t, errors.As(err, &ac))
	require.Equal(t, "Fountain", ac.SpotName)

	_, err = svc.Claim(ctx, "S1", "alice@x.io")
	require.ErrorIs(t, err, errs.ErrAlreadyClaimed)

	// emails are not normalized
	_, err = svc.Claim(ctx, "S2", "Alice@x.io")
	require.NoError(t, err)

	require.EqualValues(t, 1, testutil.CountTickets(t, db, "user_id = ?", "alice@x.io"))
}

func TestClaim_ConcurrentSameEmail(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	testutil.InsertSpot(t, db, "S2", "Library", true)
	svc := NewTicketService(db, clock.NewSystem())

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		spot := "S1"
		if i%2 == 1 {
			spot = "S2"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), spot, "race@x.io")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrAlreadyClaimed):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflict)
	require.EqualValues(t, 1, testutil.CountTickets(t, db, "user_id = ?", "race@x.io"))
}

func TestClaim_SerialCollisionRetries(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	testutil.InsertTicket(t, db, "TH1", "bob@x.io", "S1", model.TicketStatusIssued)

	calls := 0
	svc := NewTicketService(db, clock.NewManual(testNow), WithSerialGenerator(func(time.Time) (string, error) {
		calls++
		if calls < 3 {
			return "TH1", nil
		}
		return "TH2", nil
	}))
	res, err := svc.Claim(context.Background(), "S1", "alice@x.io")
	require.NoError(t, err)
	require.Equal(t, "TH2", res.Ticket.SerialNumber)
	require.Equal(t, 3, calls)
}

func TestClaim_SerialCollisionExhausted(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	testutil.InsertTicket(t, db, "TH1", "bob@x.io", "S1", model.TicketStatusIssued)

	svc := NewTicketService(db, clock.NewManual(testNow), WithSerialGenerator(func(time.Time) (string, error) {
		return "TH1", nil
	}))
	_, err := svc.Claim(context.Background(), "S1", "alice@x.io")
	require.ErrorIs(t, err, errs.ErrSerialCollision)
	require.Equal(t, errs.KindInternal, errs.KindOf(err))
	require.Zero(t, testutil.CountTickets(t, db, "user_id = ?", "alice@x.io"))
}

func TestQuery(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	clk := clock.NewManual(testNow)
	svc := NewTicketService(db, clk)
	ctx := context.Background()

	_, err := svc.Query(ctx, "bad", false)
	require.ErrorIs(t, err, errs.ErrInvalidEmail)

	res, err := svc.Query(ctx, "nobody@x.io", false)
	require.NoError(t, err)
	require.Empty(t, res.Tickets)
	require.Empty(t, res.Redeemed)

	claimed, err := svc.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)

	res, err = svc.Query(ctx, "alice@x.io", false)
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)
	require.Equal(t, claimed.Ticket.SerialNumber, res.Tickets[0].SerialNumber)
	require.NotNil(t, res.Tickets[0].SpotName)
	require.Equal(t, "Fountain", *res.Tickets[0].SpotName)
	require.Nil(t, res.Redeemed)

	clk.Advance(time.Minute)
	_, err = svc.Redeem(ctx, claimed.Ticket.ID)
	require.NoError(t, err)

	res, err = svc.Query(ctx, "alice@x.io", false)
	require.NoError(t, err)
	require.Empty(t, res.Tickets)
	require.Len(t, res.Redeemed, 1)
	require.Equal(t, model.TicketStatusRedeemed, res.Redeemed[0].Status)
	require.NotNil(t, res.Redeemed[0].RedeemedAt)

	res, err = svc.Query(ctx, "alice@x.io", true)
	require.NoError(t, err)
	require.True(t, res.ShowAll)
	require.Len(t, res.Tickets, 1)
	require.Nil(t, res.Redeemed)
}

func TestRedeem(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	clk := clock.NewManual(testNow)
	svc := NewTicketService(db, clk)
	ctx := context.Background()

	claimed, err := svc.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	got, err := svc.Redeem(ctx, claimed.Ticket.ID)
	require.NoError(t, err)
	require.Equal(t, model.TicketStatusRedeemed, got.Status)
	require.NotNil(t, got.RedeemedAt)
	require.True(t, got.RedeemedAt.Equal(testNow.Add(time.Hour)))

	_, err = svc.Redeem(ctx, claimed.Ticket.ID)
	require.ErrorIs(t, err, errs.ErrNotRedeemable)

	_, err = svc.Redeem(ctx, 99999)
	require.ErrorIs(t, err, errs.ErrNotRedeemable)
}

// A second ticket for the same email can only exist if the claim path was bypassed;
// redemption must still refuse it.
func TestRedeem_AlreadyRedeemedElsewhere(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	testutil.InsertSpot(t, db, "S2", "Library", true)
	testutil.DropClaimUniqueness(t, db)
	testutil.InsertTicket(t, db, "TH1", "alice@x.io", "S1", model.TicketStatusRedeemed)
	second := testutil.InsertTicket(t, db, "TH2", "alice@x.io", "S2", model.TicketStatusIssued)

	svc := NewTicketService(db, clock.NewManual(testNow))
	_, err := svc.Redeem(context.Background(), second.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyRedeemedElsewhere)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))
	require.EqualValues(t, 1, testutil.CountTickets(t, db, "user_id = ? AND status = ?", "alice@x.io", model.TicketStatusRedeemed))
}

func TestRedeem_ConcurrentSameTicket(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	svc := NewTicketService(db, clock.NewSystem())
	claimed, err := svc.Claim(context.Background(), "S1", "alice@x.io")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), claimed.Ticket.ID)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, errs.ErrNotRedeemable) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, ok)
}

func TestResetByEmail(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	svc := NewTicketService(db, clock.NewManual(testNow))
	ctx := context.Background()

	_, err := svc.ResetByEmail(ctx, "bad")
	require.ErrorIs(t, err, errs.ErrInvalidEmail)
	_, err = svc.ResetByEmail(ctx, "nobody@x.io")
	require.ErrorIs(t, err, errs.ErrEmailNotFound)

	claimed, err := svc.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)

	n, err := svc.ResetByEmail(ctx, "alice@x.io")
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = svc.Redeem(ctx, claimed.Ticket.ID)
	require.NoError(t, err)

	n, err = svc.ResetByEmail(ctx, "alice@x.io")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = svc.ResetByEmail(ctx, "alice@x.io")
	require.NoError(t, err)
	require.Zero(t, n)

	var ticket model.Ticket
	require.NoError(t, db.First(&ticket, claimed.Ticket.ID).Error)
	require.Equal(t, model.TicketStatusIssued, ticket.Status)
	require.Nil(t, ticket.RedeemedAt)
}

func TestResetThenRedeemOnce(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	svc := NewTicketService(db, clock.NewManual(testNow))
	ctx := context.Background()

	claimed, err := svc.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, claimed.Ticket.ID)
	require.NoError(t, err)
	_, err = svc.ResetByEmail(ctx, "alice@x.io")
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, claimed.Ticket.ID)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, claimed.Ticket.ID)
	require.ErrorIs(t, err, errs.ErrNotRedeemable)
}

func TestDeleteTicket(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	svc := NewTicketService(db, clock.NewManual(testNow))
	ctx := context.Background()

	claimed, err := svc.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, claimed.Ticket.ID)
	require.NoError(t, err)

	deleted, err := svc.DeleteTicket(ctx, claimed.Ticket.ID)
	require.NoError(t, err)
	require.Equal(t, claimed.Ticket.SerialNumber, deleted.SerialNumber)
	require.Equal(t, "alice@x.io", deleted.UserID)
	require.Equal(t, "S1", deleted.SpotID)
	require.Equal(t, model.TicketStatusRedeemed, deleted.Status)

	_, err = svc.DeleteTicket(ctx, claimed.Ticket.ID)
	require.ErrorIs(t, err, errs.ErrTicketNotFound)

	// the email may claim again once its ticket is gone
	_, err = svc.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)
}

func TestScenario_TwoSpots(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.InsertSpot(t, db, "S1", "Fountain", true)
	testutil.InsertSpot(t, db, "S2", "Library", true)
	tickets := NewTicketService(db, clock.NewManual(testNow))
	spots := NewSpotService(db, clock.NewManual(testNow))
	ctx := context.Background()

	first, err := tickets.Claim(ctx, "S1", "alice@x.io")
	require.NoError(t, err)
	_, err = tickets.Claim(ctx, "S2", "alice@x.io")
	require.EqualError(t, err, fmt.Sprintf("you have already claimed your lottery chance at %q; each person can claim only once", "Fountain"))

	_, err = tickets.Redeem(ctx, first.Ticket.ID)
	require.NoError(t, err)

	res, err := spots.DeleteSpot(ctx, "S1")
	require.NoError(t, err)
	require.EqualValues(t, 1, res.AffectedTickets)

	// with the S1 ticket gone alice is a new visitor again
	_, err = tickets.Claim(ctx, "S2", "alice@x.io")
	require.NoError(t, err)
}
