package tokenrefresh

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/postboard/internal/business"
	"github.com/openkcm/postboard/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"token-refresher",
		"Postboard Token Refresh job",
		"Postboard Token Refresh job refreshes the access tokens of the shared session store",
		buildInfo,
		cmdutils.RunAsService,
		business.TokenRefresherMain,
	)
}
