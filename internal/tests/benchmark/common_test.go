package benchmark

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/yndnr/ordguard-go/pkg/guarded"
	"github.com/yndnr/ordguard-go/pkg/lockpolicy"
	"github.com/yndnr/ordguard-go/pkg/resource"
	"github.com/yndnr/ordguard-go/pkg/transfer"
)

func benchLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func benchSizer(key, value string) int {
	return len(key) + len(value)
}

func newBenchMap(policy lockpolicy.Policy, ceiling int64) *guarded.Map[string, string] {
	return guarded.New[string, string](
		guarded.WithPolicy[string, string](policy),
		guarded.WithResourceConfig[string, string](resource.Config{CeilingBytes: ceiling}),
		guarded.WithChannel[string, string](transfer.NewChannel()),
		guarded.WithSizer[string, string](benchSizer),
		guarded.WithLogger[string, string](benchLogger()),
	)
}

func seedMap(m *guarded.Map[string, string], n int) {
	for i := 0; i < n; i++ {
		m.Set(fmt.Sprintf("key-%06d", i), "benchmark payload value")
	}
}
