package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertcast/internal/alert"
	"alertcast/internal/delivery"
	"alertcast/internal/directory"
	"alertcast/internal/notification"
	logx "alertcast/pkg/logx"
)

type panicChannel struct{}

func (panicChannel) Tag() alert.DeliveryTag { return "panicky" }

func (panicChannel) Send(context.Context, directory.User, alert.Alert) error {
	panic("wire cut")
}

func TestSendTagsChannelPanicAsDeliveryFailure(t *testing.T) {
	reg := delivery.NewRegistry()
	require.NoError(t, reg.Register("panicky", delivery.Singleton(panicChannel{})))
	reg.Freeze()

	d := New(Config{}, directory.New(), alert.NewStore(nil, logx.Nop()),
		notification.NewEngine(notification.SnoozePolicy{Location: time.UTC}), reg, nil, logx.Nop())

	err := d.send(context.Background(), alert.Alert{ID: "a1", Delivery: "panicky"}, directory.User{ID: "alice"})
	require.Error(t, err)
	assert.True(t, goerr.HasTag(err, alert.TagDeliveryFailure))
	assert.Contains(t, err.Error(), "channel panic")
}
