package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/client"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/sentiment"
	"github.com/lazypower/rapport/internal/store"
)

// Remote commands talk to a running server (RAPPORT_URL, RAPPORT_TOKEN).

var (
	logProfile string
	logType    string
	logDate    string
	pulseFrame string
)

var logCmd = &cobra.Command{
	Use:   "log <description>",
	Short: "Record an interaction on a running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if logProfile == "" {
			return fmt.Errorf("--profile is required")
		}
		it, err := client.FromEnv().SubmitInteraction(cmd.Context(), logProfile, strings.Join(args, " "), logType, logDate)
		if err != nil {
			return err
		}
		renderInteraction(cmd.OutOrStdout(), it)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <profile-id>",
	Short: "Show sentiment stats for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := client.FromEnv().ProfileStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

var pulseCmd = &cobra.Command{
	Use:   "pulse <profile-id>",
	Short: "Chart a profile's recent interactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		series, err := client.FromEnv().Pulse(cmd.Context(), args[0], pulseFrame)
		if err != nil {
			return err
		}
		renderPulse(cmd.OutOrStdout(), series)
		return nil
	},
}

func init() {
	logCmd.Flags().StringVarP(&logProfile, "profile", "p", "", "profile ID")
	logCmd.Flags().StringVarP(&logType, "type", "t", "", "interaction type: "+strings.Join(store.InteractionTypes, ", "))
	logCmd.Flags().StringVar(&logDate, "date", "", "when it happened (RFC 3339 or YYYY-MM-DD, default now)")
	pulseCmd.Flags().StringVar(&pulseFrame, "timeframe", engine.TimeframeDaily, "daily, weekly or monthly")
}

func renderInteraction(w io.Writer, it *store.Interaction) {
	band := sentiment.ColorBand(it.Sentiment.Score)
	bandColor(band).Fprintf(w, "%+.2f %s", it.Sentiment.Score, it.Sentiment.Label)
	fmt.Fprintf(w, "  %s  %s  %s\n", it.Date.Local().Format("2006-01-02 15:04"), it.Type, it.ID)
}

func renderStats(w io.Writer, s *engine.Stats) {
	fmt.Fprintf(w, "interactions  %d\n", s.TotalInteractions)
	if s.TotalInteractions == 0 {
		return
	}
	avg := s.AverageSentiment
	fmt.Fprint(w, "average       ")
	bandColor(sentiment.ColorBand(avg)).Fprintf(w, "%+.2f\n", avg)
	fmt.Fprintf(w, "positive      %d\nnegative      %d\nneutral       %d\n",
		s.PositiveCount, s.NegativeCount, s.NeutralCount)
	if s.FirstInteractionDate != nil && s.LastInteractionDate != nil {
		fmt.Fprintf(w, "span          %s .. %s\n",
			s.FirstInteractionDate.Format("2006-01-02"), s.LastInteractionDate.Format("2006-01-02"))
	}
	for _, t := range store.InteractionTypes {
		if n := s.TypeDistribution[t]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", t, n)
		}
	}
}

// pulseWidth is the number of cells on each side of zero.
const pulseWidth = 10

func renderPulse(w io.Writer, series *engine.PulseSeries) {
	fmt.Fprintf(w, "%s pulse, %s .. %s\n", series.Timeframe,
		series.Start.Format("2006-01-02 15:04"), series.End.Format("2006-01-02 15:04"))
	if len(series.Metrics) == 0 {
		fmt.Fprintln(w, "  no interactions in this window")
		return
	}
	for _, p := range series.Metrics {
		cells := int(p.Score*pulseWidth + 0.5*sign(p.Score))
		left := strings.Repeat(" ", pulseWidth)
		right := ""
		if cells < 0 {
			left = strings.Repeat(" ", pulseWidth+cells) + strings.Repeat("█", -cells)
		} else {
			right = strings.Repeat("█", cells)
		}
		fmt.Fprintf(w, "%s ", p.Date.Format("01-02 15:04"))
		c := bandColor(p.ColorBand)
		c.Fprint(w, left)
		fmt.Fprint(w, "|")
		c.Fprint(w, right)
		fmt.Fprintf(w, "%s %+.2f %s\n", strings.Repeat(" ", pulseWidth-len([]rune(right))), p.Score, p.Type)
	}
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
