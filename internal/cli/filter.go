package cli

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rosetool/bagio"
	"github.com/rosetool/bagio/rosbag"
)

func newFilterCmd() *cobra.Command {
	var (
		topics      []string
		whitelist   string
		start       string
		end         string
		compression string
		profilePath string
	)

	cmd := &cobra.Command{
		Use:   "filter <input-bag> <output-bag>",
		Short: "Re-export a topic subset and/or time window into a new bag",
		Long: `Filters a bag into a new bag. Topics come from --topics, a whitelist
file, a profile, or any combination; with none given, every topic is kept.
Timestamps for --start/--end accept RFC 3339 or Unix seconds with an
optional fraction. Both bounds are inclusive.`,
		Example: `  rose filter in.bag out.bag --topics /imu,/tf
  rose filter in.bag out.bag --whitelist topics.txt --start 1700000000 --end 1700000060
  rose filter in.bag out.bag --profile nightly.yaml --compression lz4`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if profilePath != "" {
				prof, err := loadProfile(profilePath)
				if err != nil {
					return fmt.Errorf("loading profile: %w", err)
				}
				topics = append(prof.Topics, topics...)
				if start == "" {
					start = prof.Start
				}
				if end == "" {
					end = prof.End
				}
				if !cmd.Flags().Changed("compression") && prof.Compression != "" {
					compression = prof.Compression
				}
			}

			if whitelist != "" {
				fromFile, err := bagio.LoadWhitelist(whitelist)
				if err != nil {
					return fmt.Errorf("loading whitelist: %w", err)
				}
				topics = append(topics, fromFile...)
			}

			window, err := parseWindow(start, end)
			if err != nil {
				return err
			}

			if err := validCompression(compression); err != nil {
				return err
			}

			session := bagio.NewSession(bagio.WithDumpCompression(rosbag.Compression(compression)))
			defer session.Close()

			if err := session.Load(args[0], nil); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Filtering %s to %s\n", args[0], args[1])
			if len(topics) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Topics: %v\n", topics)
			}

			started := time.Now()
			if err := session.Dump(args[1], topics, window); err != nil {
				return err
			}

			elapsed := time.Since(started)
			mins := int(elapsed.Minutes())
			secs := elapsed.Seconds() - float64(mins)*60
			fmt.Fprintf(cmd.OutOrStdout(), "Filtering completed in %dm %.2fs\n", mins, secs)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&topics, "topics", nil, "topics to keep (comma-separated); empty keeps all")
	cmd.Flags().StringVar(&whitelist, "whitelist", "", "path to a topic whitelist file")
	cmd.Flags().StringVar(&start, "start", "", "window start (RFC 3339 or Unix seconds)")
	cmd.Flags().StringVar(&end, "end", "", "window end (RFC 3339 or Unix seconds)")
	cmd.Flags().StringVar(&compression, "compression", "none", "chunk compression of the output bag (none|lz4)")
	cmd.Flags().StringVar(&profilePath, "profile", "", "path to a filter profile file")

	return cmd
}

func validCompression(compression string) error {
	switch rosbag.Compression(compression) {
	case rosbag.CompressionNone, rosbag.CompressionLZ4:
		return nil
	default:
		return fmt.Errorf("invalid --compression %q: must be one of none, lz4", compression)
	}
}

func parseWindow(start, end string) (bagio.TimeRange, error) {
	if start == "" && end == "" {
		return bagio.Unbounded(), nil
	}
	if start == "" || end == "" {
		return bagio.TimeRange{}, fmt.Errorf("--start and --end must be given together")
	}

	startStamp, err := parseStamp(start)
	if err != nil {
		return bagio.TimeRange{}, fmt.Errorf("invalid --start: %w", err)
	}
	endStamp, err := parseStamp(end)
	if err != nil {
		return bagio.TimeRange{}, fmt.Errorf("invalid --end: %w", err)
	}

	return bagio.NewTimeRange(startStamp, endStamp)
}

func parseStamp(s string) (rosbag.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		if t.Before(time.Unix(0, 0)) {
			return rosbag.Time{}, fmt.Errorf("%q is before the Unix epoch", s)
		}
		return rosbag.NewTime(t), nil
	}

	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || seconds < 0 {
		return rosbag.Time{}, fmt.Errorf("%q is neither RFC 3339 nor non-negative Unix seconds", s)
	}

	sec := math.Floor(seconds)
	nsec := math.Round((seconds - sec) * 1e9)
	if nsec >= 1e9 {
		sec++
		nsec = 0
	}
	return rosbag.Time{Sec: uint32(sec), NSec: uint32(nsec)}, nil
}
