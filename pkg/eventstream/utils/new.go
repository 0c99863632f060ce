// Package eventstreamutils is the eventstream utility package
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/fastrag/pkg/eventstream"
	"github.com/papercomputeco/fastrag/pkg/eventstream/kafka"
	"github.com/papercomputeco/fastrag/pkg/eventstream/nop"
)

// Supported event publishers.
const (
	ProviderNop   = "nop"
	ProviderKafka = "kafka"
)

type NewPublisherOpts struct {
	ProviderType string

	// TargetURL is a comma separated broker list for kafka.
	TargetURL string
	Topic     string
	Logger    *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case ProviderNop, "":
		return nop.NewPublisher(), nil
	case ProviderKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.TargetURL,
			Topic:   o.Topic,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported event publisher: %s", o.ProviderType)
	}
}
