package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisputeChallengeFlow(t *testing.T) {
	d, err := NewDispute("dis_001", "pay_001", usd(t, 5000))
	require.NoError(t, err)
	assert.Equal(t, DisputeOpened, d.Status)

	require.NoError(t, d.SubmitEvidence("delivery receipt, signed"))
	assert.Equal(t, DisputeChallenged, d.Status)
	assert.Equal(t, "delivery receipt, signed", d.Evidence)
	assert.NotNil(t, d.ChallengedAt)

	require.NoError(t, d.Win())
	assert.Equal(t, DisputeWon, d.Status)
	assert.NotNil(t, d.ResolvedAt)
}

func TestEvidenceOnlyWhileOpened(t *testing.T) {
	d, err := NewDispute("dis_002", "pay_001", usd(t, 5000))
	require.NoError(t, err)
	require.NoError(t, d.Accept())

	err = d.SubmitEvidence("too late")
	assert.ErrorIs(t, err, ErrEvidenceNotAllowed)
	assert.Empty(t, d.Evidence)
	assert.Equal(t, DisputeAccepted, d.Status)
}

func TestDisputeTerminalOutcomes(t *testing.T) {
	outcomes := []struct {
		name  string
		act   func(*Dispute) error
		wants DisputeStatus
	}{
		{"accept", (*Dispute).Accept, DisputeAccepted},
		{"cancel", (*Dispute).Cancel, DisputeCancelled},
		{"expire", (*Dispute).Expire, DisputeExpired},
	}

	for _, tt := range outcomes {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDispute("dis_"+tt.name, "pay_001", usd(t, 100))
			require.NoError(t, err)
			require.NoError(t, tt.act(d))
			assert.Equal(t, tt.wants, d.Status)
			assert.True(t, d.Status.IsTerminal())
			assert.NotNil(t, d.ResolvedAt)
		})
	}
}

func TestDisputeCannotWinWithoutChallenge(t *testing.T) {
	d, err := NewDispute("dis_003", "pay_001", usd(t, 100))
	require.NoError(t, err)

	assert.ErrorIs(t, d.Win(), ErrInvalidTransition)
	assert.Equal(t, DisputeOpened, d.Status)
	assert.Nil(t, d.ResolvedAt)
}
