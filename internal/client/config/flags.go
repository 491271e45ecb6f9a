package config

import "github.com/spf13/pflag"

// BindFlags registers the CLI's persistent flags on fs, defaulting to the
// values already in c so that flags win over file and environment.
//
//	-a, --addr      address and port of the server
//	-s, --state     DSN of the local session store
//	    --timeout   per-command request timeout
//	-c, --config    JSON config file (read before flags are parsed)
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.ServerEndpointAddr, "addr", "a", c.ServerEndpointAddr, "address and port to access server")
	fs.StringVarP(&c.StateDSN, "state", "s", c.StateDSN, "local session store DSN (default ~/"+StateDirName+"/state.db)")
	fs.DurationVar(&c.RequestTimeout, "timeout", c.RequestTimeout, "request timeout")
	fs.StringP("config", "c", "", "path to JSON config file")
}
