package providers

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clipscout/cmd/clipscout/cmd/shared"
	"clipscout/internal/app/api/factory"
	"clipscout/internal/app/api/provider"
)

var health bool

// Cmd acquires every capability through the fallback getters and reports who serves it
var Cmd = &cobra.Command{
	Use:   "providers",
	Short: "Show which provider serves each capability",
	Long: `Acquire each capability with fallback and print the configured primary,
the fallback and the provider actually serving it. --health also probes the
backends that support a live health check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := shared.Open(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		return report(cmd.Context(), cmd.OutOrStdout(), a.Factory, health)
	},
}

func init() {
	Cmd.Flags().BoolVar(&health, "health", false, "run backend health checks")
}

type acquirer func(ctx context.Context) (provider.Provider, error)

func acquirers(f *factory.Factory) map[provider.Capability]acquirer {
	return map[provider.Capability]acquirer{
		provider.CapabilityVision: func(ctx context.Context) (provider.Provider, error) {
			return f.VisionProviderWithFallback(ctx)
		},
		provider.CapabilityTranscription: func(ctx context.Context) (provider.Provider, error) {
			return f.TranscriptionProviderWithFallback(ctx)
		},
		provider.CapabilityEmbeddings: func(ctx context.Context) (provider.Provider, error) {
			return f.EmbeddingsProviderWithFallback(ctx)
		},
		provider.CapabilityChat: func(ctx context.Context) (provider.Provider, error) {
			return f.ChatProviderWithFallback(ctx)
		},
	}
}

func report(ctx context.Context, out io.Writer, f *factory.Factory, health bool) error {
	get := acquirers(f)
	statuses := make(map[provider.Capability]factory.SlotStatus)
	for _, st := range f.Describe() {
		statuses[st.Capability] = st
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CAPABILITY\tPRIMARY\tFALLBACK\tSERVED BY\tSTATUS")

	failed := 0
	for _, capability := range provider.Capabilities {
		st := statuses[capability]
		p, err := get[capability](ctx)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s\t%s\t%s\t-\t%v\n", capability, st.Primary, dash(st.Fallback), err)
			continue
		}
		status := "available"
		if health {
			status = checkHealth(ctx, p)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", capability, st.Primary, dash(st.Fallback), p.Name(), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d capabilities unavailable", failed, len(provider.Capabilities))
	}
	return nil
}

func checkHealth(ctx context.Context, p provider.Provider) string {
	hc, ok := p.(provider.HealthChecker)
	if !ok {
		return "available (no health check)"
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
