package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	t.Run("zero values when unset", func(t *testing.T) {
		assert.Empty(t, PrincipalID(ctx))
		assert.Empty(t, SessionID(ctx))
		assert.Empty(t, RequestID(ctx))
		assert.False(t, TwoFactorVerified(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("values round trip", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		c := WithPrincipalID(ctx, "p1")
		c = WithSessionID(c, "s1")
		c = WithRequestID(c, "r1")
		c = WithTwoFactorVerified(c, true)
		c = WithClientMetadata(c, "10.0.0.1", "curl/8")
		c = WithTime(c, fixed)

		assert.Equal(t, "p1", PrincipalID(c))
		assert.Equal(t, "s1", SessionID(c))
		assert.Equal(t, "r1", RequestID(c))
		assert.True(t, TwoFactorVerified(c))
		assert.Equal(t, "10.0.0.1", ClientIP(c))
		assert.Equal(t, "curl/8", UserAgent(c))
		assert.Equal(t, fixed, Now(c))
	})
}
