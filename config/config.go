package config

import (
	"flag"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFile is the config file looked up in the working
	// directory when no path is given.
	DefaultConfigFile = "hippy.toml"

	// DefaultHost and DefaultPort locate a locally running SoHal
	// server. The port is the base of the discovery range.
	DefaultHost = "localhost"
	DefaultPort = 20641
)

// Config holds the application settings.
type Config struct {
	Debug bool `toml:"debug"`
	SoHal struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"sohal"`
	Log struct {
		Filename string `toml:"filename"`
	} `toml:"log"`
}

// NewConfig returns a Config with the defaults applied.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.SoHal.Host = DefaultHost
	cfg.SoHal.Port = DefaultPort
	cfg.Log.Filename = "hippy.log"
	return cfg
}

// LoadConfig loads the settings, in order of precedence: the file at
// configPath when given, the default config file when present in the
// working directory, and the built-in defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := NewConfig()

	filePath := configPath
	if filePath == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			filePath = DefaultConfigFile
		} else {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(filePath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyCommandLineArgs overrides settings with values that were
// explicitly given on the command line.
func (c *Config) ApplyCommandLineArgs(args CommandLineArgs) {
	if args.DebugSpecified {
		c.Debug = args.Debug
	}
	if args.HostSpecified {
		c.SoHal.Host = args.Host
	}
	if args.PortSpecified {
		c.SoHal.Port = args.Port
	}
	if args.LogFilenameSpecified {
		c.Log.Filename = args.LogFilename
	}
}

// CommandLineArgs holds the parsed command line values, each paired with
// whether the flag was actually present so that unset flags do not
// clobber file settings with their defaults.
type CommandLineArgs struct {
	ConfigFile      string
	ConfigSpecified bool

	Debug          bool
	DebugSpecified bool

	Host          string
	HostSpecified bool

	Port          int
	PortSpecified bool

	LogFilename          string
	LogFilenameSpecified bool
}

// ParseCommandLineArgs parses the process command line.
func ParseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	configFileFlag := flag.String("config", "", "path to a TOML config file")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	hostFlag := flag.String("host", DefaultHost, "SoHal server host")
	portFlag := flag.Int("port", DefaultPort, "base port of the SoHal discovery range")
	logFilenameFlag := flag.String("log", "hippy.log", "log file name")

	flag.Parse()

	specified := specifiedFlags()

	args.ConfigFile = *configFileFlag
	args.ConfigSpecified = specified["config"]
	args.Debug = *debugFlag
	args.DebugSpecified = specified["debug"]
	args.Host = *hostFlag
	args.HostSpecified = specified["host"]
	args.Port = *portFlag
	args.PortSpecified = specified["port"]
	args.LogFilename = *logFilenameFlag
	args.LogFilenameSpecified = specified["log"]

	return args
}

// specifiedFlags scans the raw arguments to tell which flags were
// actually present, since flag defaults are indistinguishable from
// explicit values after Parse.
func specifiedFlags() map[string]bool {
	specified := make(map[string]bool)
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if len(arg) == 0 || arg[0] != '-' {
			continue
		}
		name := arg[1:]
		if len(name) > 0 && name[0] == '-' {
			name = name[1:]
		}
		if idx := indexOf(name, '='); idx >= 0 {
			name = name[:idx]
		}
		specified[name] = true
	}
	return specified
}

func indexOf(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
