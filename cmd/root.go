/*
Package cmd implements the command-line interface for the a2a-go runtime:
serving an agent process and driving one as a client.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Embed the default config so a fresh install has something to read
// agent.default.* from before the operator ever writes their own.
//
//go:embed cfg/*
var embedded embed.FS

var (
	projectName = "a2a-go"
	cfgFile     string

	rootCmd = &cobra.Command{
		Use:   "a2a-go",
		Short: "A reference implementation of the Agent-to-Agent (A2A) protocol",
		Long:  longRoot,
	}
)

// Execute is the CLI's entry point.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)
}

// initConfig writes the embedded default config into the user's home
// directory on first run, then loads it through viper; agent.* lookups
// elsewhere (pkg/a2a's NewAgentCardFromConfig) read from it.
func initConfig() {
	if err := writeConfig(); err != nil {
		log.Fatal(err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	home, _ := os.UserHomeDir()
	viper.AddConfigPath(home + "/." + projectName)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func writeConfig() (err error) {
	var (
		home, _ = os.UserHomeDir()
		fh      fs.File
		buf     bytes.Buffer
	)

	configDir := home + "/." + projectName
	if !CheckFileExists(configDir) {
		if err = os.MkdirAll(configDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	fullPath := configDir + "/" + cfgFile
	if CheckFileExists(fullPath) {
		return nil
	}

	if fh, err = embedded.Open("cfg/" + cfgFile); err != nil {
		return fmt.Errorf("failed to open embedded config file: %w", err)
	}
	defer fh.Close()

	if _, err = io.Copy(&buf, fh); err != nil {
		return fmt.Errorf("failed to read embedded config file: %w", err)
	}

	if err = os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Println("wrote config file to", fullPath)
	return nil
}

func CheckFileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !errors.Is(err, os.ErrNotExist)
}

var longRoot = `
a2a-go is a reference Go implementation of the Agent-to-Agent (A2A) protocol.
It provides a task lifecycle engine, JSON-RPC dispatch, SSE streaming, push
notifications and discovery behind a single agent process, plus a client for
driving another agent speaking the same protocol.
`
