package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/v0xg/pagegif/internal/config"
)

func newRecordCmd(captureCfg *config.Capture, encodeCfg *config.Encode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record [url]",
		Short: "Capture frames, then encode them into a GIF",
		Long: `record runs capture to completion and then encode on the frames it wrote.
The encoder only reads the frames from disk, exactly as a separate encode run would.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				captureCfg.URL = args[0]
			}

			res, err := runCapture(cmd, *captureCfg)
			if err != nil {
				return err
			}
			fmt.Println()

			enc := *encodeCfg
			enc.FramesDir = res.Dir
			enc.FPS = captureCfg.FPS
			return runEncode(cmd, enc)
		},
	}
	bindCaptureFlags(cmd.Flags(), captureCfg)
	bindEncodeFlags(cmd.Flags(), encodeCfg)
	return cmd
}
