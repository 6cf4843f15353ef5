package runner

import "github.com/projectdiscovery/gologger"

var banner = `
    ___ __          __         _
   / _/ / ___  ___ / /_ ___   (_)___  ___ _
  / _/ / / -_)/ -_) __// _ \ / // _ \/ _ '/
 /_/ /_/\__/ \__/\__/ / .__//_//_//_/\_, /
                     /_/            /___/
`

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s\n", banner)
	gologger.Print().Msgf("\t\tprojectdiscovery.io\n\n")
}
