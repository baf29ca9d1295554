package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	csflib "github.com/rpcpool/csf"
	"github.com/rpcpool/csf/internal/valuecodec"
)

func newCmd_Inspect() *cli.Command {
	var flagArtifact string

	return &cli.Command{
		Name:        "inspect",
		Description: "Print summary information about a CSF artifact.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "artifact",
				Aliases:     []string{"a"},
				Required:    true,
				Destination: &flagArtifact,
			},
		},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(flagArtifact)
			if err != nil {
				return fmt.Errorf("read %s: %w", flagArtifact, err)
			}

			csfVal, err := csflib.Load(data, valuecodec.Uint32{})
			if err != nil {
				return fmt.Errorf("load %s: %w", flagArtifact, err)
			}

			fmt.Printf("artifact:    %s\n", flagArtifact)
			fmt.Printf("size:        %s\n", humanize.IBytes(uint64(len(data))))
			fmt.Printf("num_buckets: %d\n", csfVal.NumBuckets())
			return nil
		},
	}
}
