// Package versioncmder
package versioncmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatgate/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(utils.VersionString()))
			return err
		},
	}
}
