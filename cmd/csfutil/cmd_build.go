package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rpcpool/csf/internal/filter"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	csflib "github.com/rpcpool/csf"
	"github.com/rpcpool/csf/internal/valuecodec"
)

func newCmd_Build() *cli.Command {
	var flagInput string
	var flagOutput string
	var flagFilter string
	var flagErrorRate float64
	var flagBucketSize int
	var flagVerbose bool

	return &cli.Command{
		Name:        "build",
		Description: "Build a CSF artifact from a tab-separated key/value file.",
		ArgsUsage:   "<output-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to a TSV file of \"key\\tvalue\" lines (value must be a uint32)",
				Required:    true,
				Destination: &flagInput,
			},
			&cli.StringFlag{
				Name:        "filter",
				Usage:       "pre-filter variant: none, bloom, xor, binaryfuse",
				Value:       "none",
				Destination: &flagFilter,
			},
			&cli.Float64Flag{
				Name:        "error-rate",
				Usage:       "target false-positive rate for the pre-filter",
				Value:       0.01,
				Destination: &flagErrorRate,
			},
			&cli.IntFlag{
				Name:        "bucket-size",
				Usage:       "target number of keys per hash-store bucket",
				Value:       2000,
				Destination: &flagBucketSize,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Destination: &flagVerbose,
			},
		},
		Action: func(c *cli.Context) error {
			flagOutput = c.Args().First()
			if flagOutput == "" {
				return fmt.Errorf("missing output path")
			}

			keys, values, err := readKeyValueFile(flagInput)
			if err != nil {
				return err
			}
			klog.Infof("read %s key/value pairs from %s", humanize.Comma(int64(len(keys))), flagInput)

			filterCfg, err := parseFilterFlag(flagFilter, flagErrorRate)
			if err != nil {
				return err
			}

			c2, stats, err := csflib.Build(keys, values, valuecodec.Uint32{}, csflib.BuildOptions{
				Filter:     filterCfg,
				BucketSize: flagBucketSize,
				Verbose:    flagVerbose,
			})
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			data, err := c2.Save()
			if err != nil {
				return fmt.Errorf("save: %w", err)
			}

			if err := os.WriteFile(flagOutput, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", flagOutput, err)
			}

			klog.Infof("wrote %s (%s) over %d buckets in %s", flagOutput, humanize.IBytes(uint64(len(data))), c2.NumBuckets(), stats.WallTime)
			return nil
		},
	}
}

func parseFilterFlag(name string, errorRate float64) (filter.Config, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return filter.Config{Kind: filter.KindNone}, nil
	case "bloom":
		return filter.Config{Kind: filter.KindBloom, ErrorRate: errorRate}, nil
	case "xor":
		return filter.Config{Kind: filter.KindXOR, FingerprintBits: 8}, nil
	case "binaryfuse":
		return filter.Config{Kind: filter.KindBinaryFuse, FingerprintBits: 8}, nil
	default:
		return filter.Config{}, fmt.Errorf("unknown filter variant %q", name)
	}
}

func readKeyValueFile(path string) ([][]byte, []uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var keys [][]byte
	var values []uint32

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, nil, fmt.Errorf("%s:%d: expected \"key\\tvalue\"", path, lineNo)
		}
		value, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: invalid uint32 value %q: %w", path, lineNo, parts[1], err)
		}
		keys = append(keys, []byte(parts[0]))
		values = append(values, uint32(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	return keys, values, nil
}
