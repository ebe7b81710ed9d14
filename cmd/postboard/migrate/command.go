package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/postboard/internal/business"
	"github.com/openkcm/postboard/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Postboard migrations",
		"Postboard migrations create the session table of the postgres session store",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
