package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	csflib "github.com/rpcpool/csf"
	"github.com/rpcpool/csf/internal/valuecodec"
)

func newCmd_Query() *cli.Command {
	var flagArtifact string

	return &cli.Command{
		Name:        "query",
		Description: "Look up one or more keys in a CSF artifact.",
		ArgsUsage:   "<key> [key...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "artifact",
				Aliases:     []string{"a"},
				Required:    true,
				Destination: &flagArtifact,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one key is required")
			}

			data, err := os.ReadFile(flagArtifact)
			if err != nil {
				return fmt.Errorf("read %s: %w", flagArtifact, err)
			}

			csfVal, err := csflib.Load(data, valuecodec.Uint32{})
			if err != nil {
				return fmt.Errorf("load %s: %w", flagArtifact, err)
			}

			for _, key := range c.Args().Slice() {
				fmt.Printf("%s\t%d\n", key, csfVal.Query([]byte(key)))
			}
			return nil
		},
	}
}
