package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrInvalidEmail, KindValidation},
		{fmt.Errorf("redeem: %w", ErrNotRedeemable), KindNotFound},
		{&AlreadyClaimedError{SpotName: "S1"}, KindConflict},
		{ErrAlreadyRedeemedElsewhere, KindConflict},
		{ErrUnauthenticated, KindUnauthenticated},
		{ErrUnauthorized, KindUnauthorized},
		{errors.New("pq: relation does not exist"), KindInternal},
		{ErrIdentifierExhausted, KindInternal},
	}
	for _, c := range cases {
		require.Equal(t, c.want, KindOf(c.err), "err=%v", c.err)
	}
}

func TestAlreadyClaimedErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("claim: %w", &AlreadyClaimedError{SpotName: "Lobby"})
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	require.Contains(t, Message(err, "x"), "Lobby")
}

func TestMessageHidesInternalText(t *testing.T) {
	require.Equal(t, "system error", Message(errors.New("UNIQUE constraint failed: spots.id"), "system error"))
	require.Equal(t, "system error", Message(ErrIdentifierExhausted, "system error"))
	require.Equal(t, ErrSpotNotFound.Msg, Message(ErrSpotNotFound, "system error"))
}
