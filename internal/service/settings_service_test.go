package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, zerolog.Nop())

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, settings.Easypaisa)
	assert.Empty(t, settings.Jazzcash)
	assert.Empty(t, settings.UPI)
}

func TestSettingsService_Update(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, zerolog.Nop())
	ctx := context.Background()

	updated, err := svc.Update(ctx, UpdateSettingsInput{
		Easypaisa: "0300-1234567",
		Jazzcash:  "0301-7654321",
		UPI:       "merchant@upi",
	})
	require.NoError(t, err)
	assert.Equal(t, "0300-1234567", updated.Easypaisa)

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "merchant@upi", settings.UPI)

	// Blanking a channel sticks.
	_, err = svc.Update(ctx, UpdateSettingsInput{Easypaisa: "", Jazzcash: "0301-7654321", UPI: ""})
	require.NoError(t, err)

	settings, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings.Easypaisa)
	assert.Equal(t, "0301-7654321", settings.Jazzcash)
}
