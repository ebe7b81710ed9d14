package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/postboard/internal/business"
	"github.com/openkcm/postboard/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Postboard API server",
		"Postboard API server serves the login and posts pages over HTTP",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
