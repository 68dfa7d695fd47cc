package cmd

import (
	"fmt"
	"io"

	"github.com/klauspost/cpuid/v2"
	"github.com/labstack/gommon/bytes"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/corrlab/corrbuf/internal/conf"
)

func infoCommand(ctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print pool sizing and host information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printInfo(cmd.OutOrStdout(), ctx)
			return nil
		},
	}
}

func printInfo(w io.Writer, app *Context) {
	p := &app.Settings.Pool
	out := message.NewPrinter(language.English)

	out.Fprintf(w, "corrbuf %s (built %s)\n\n", app.Build.Version(), app.Build.BuildDate())

	out.Fprintf(w, "Pool\n")
	out.Fprintf(w, "  antennas x channels x beams  %d x %d x %d\n", p.Antennas, p.Channels, p.Beams)
	out.Fprintf(w, "  buffers                      %d (multiplier %d)\n", p.Capacity(), p.Multiplier)
	out.Fprintf(w, "  samples per buffer           %d\n", p.SampleCount)
	out.Fprintf(w, "  buffer size                  %d bytes\n", p.BufferSize())
	out.Fprintf(w, "  matcher                      %s\n", matcherDescription(p))
	if keys := p.Antennas * p.Channels * p.Beams; p.Capacity() < keys {
		out.Fprintf(w, "  warning: %d buffers cannot hold one buffer per key (%d keys)\n", p.Capacity(), keys)
	}

	budget, err := conf.CheckMemoryBudget(p)
	fmt.Fprintf(w, "\nMemory\n")
	fmt.Fprintf(w, "  pool footprint               %s\n", bytes.Format(int64(p.MemoryFootprint())))
	if budget.Total > 0 {
		fmt.Fprintf(w, "  host total                   %s\n", bytes.Format(int64(budget.Total)))
		fmt.Fprintf(w, "  host available               %s\n", bytes.Format(int64(budget.Available)))
		fmt.Fprintf(w, "  limit (%.0f%%)                  %s\n", p.MaxMemoryPercent, bytes.Format(int64(budget.Limit)))
	}
	if err != nil {
		fmt.Fprintf(w, "  error: %v\n", err)
	}

	fmt.Fprintf(w, "\nCPU\n")
	fmt.Fprintf(w, "  %s\n", cpuid.CPU.BrandName)
	fmt.Fprintf(w, "  %d physical / %d logical cores\n", cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
	fmt.Fprintf(w, "  AVX2 %t, AVX-512 %t\n", cpuid.CPU.Supports(cpuid.AVX2), cpuid.CPU.Supports(cpuid.AVX512F))
}

func matcherDescription(p *conf.PoolSettings) string {
	if p.Matcher == conf.MatcherQuorum {
		return fmt.Sprintf("quorum of %d", p.Quorum)
	}
	return "all antennas"
}
