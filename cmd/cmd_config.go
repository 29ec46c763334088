package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
)

type outputType int

const (
	tableOut outputType = iota
	jsonOut
)

const (
	outputFlag  = "output"
	quantumFlag = "quantum"
	debugFlag   = "debug"
	addressFlag = "address"
)

const (
	configDirName  = "kacchi"
	configFileName = "config.json"
)

type kacchiOpts struct {
	outType outputType
	quantum uint32
	debug   bool
	address string
}

// fileConfig is the optional user config read from the XDG config home. CLI
// flags take precedence over it.
type fileConfig struct {
	Quantum   uint32 `json:"quantum"`
	UIAddress string `json:"ui_address"`
}

// CLI flags to initialize
func init() {
	// output
	memCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")
	listCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")
	schedCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")

	// quantum
	runCmd.Flags().Uint32(quantumFlag, 0, "Time quantum in ticks (1-100). 0 keeps the configured default.")
	schedCmd.Flags().Uint32(quantumFlag, 0, "Time quantum in ticks (1-100). 0 keeps the configured default.")

	// debug dump
	runCmd.Flags().Bool(debugFlag, false, "Dump the final kernel state when the shell exits.")

	// ui address
	uiCmd.Flags().String(addressFlag, "", "Address to serve the kernel state on (default :8080).")
}

func newOptions(fs *pflag.FlagSet) kacchiOpts {
	conf := loadFileConfig()

	opts := kacchiOpts{
		outType: resolveOutputType(fs),
		quantum: conf.Quantum,
		address: conf.UIAddress,
	}

	if q, err := fs.GetUint32(quantumFlag); err == nil && q != 0 {
		opts.quantum = q
	}
	if d, err := fs.GetBool(debugFlag); err == nil {
		opts.debug = d
	}
	if a, err := fs.GetString(addressFlag); err == nil && a != "" {
		opts.address = a
	}

	return opts
}

func resolveOutputType(fs *pflag.FlagSet) outputType {
	of, err := fs.GetString(outputFlag)
	// default if there are ever issues finding flag
	if err != nil {
		return tableOut
	}
	switch of {
	case "json":
		return jsonOut
	case "table":
		return tableOut
	}

	// default outputType
	return tableOut
}

// loadFileConfig reads the optional config file from the user's XDG config
// home. A missing or unreadable file yields the zero config.
func loadFileConfig() fileConfig {
	var conf fileConfig
	fp := filepath.Join(xdg.ConfigHome, configDirName, configFileName)
	data, err := os.ReadFile(fp)
	if err != nil {
		return conf
	}
	if err := json.Unmarshal(data, &conf); err != nil {
		return fileConfig{}
	}
	return conf
}
