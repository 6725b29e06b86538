package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"priority-todo-backend/internal/client"
)

const version = "0.1.0"

const defaultAPIURL = "http://localhost:8080"

type cli struct {
	apiURL    string
	tokenFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "todo",
		Short: "Priority todo list client",
		Long: `todo manages your tasks on a priority todo server.

Tasks are ordered by priority score, computed from importance and urgency
(1 low, 2 medium, 3 high, 4 critical), importance weighing 60%.

EXAMPLES:
  todo register ann@example.com ann       # create an account and log in
  todo add "Write report" -i 4 -u 3        # add a task
  todo list                                # tasks, highest priority first
  todo done 12                             # mark task 12 completed

CONFIGURATION:
  TODO_API_URL    server URL (default http://localhost:8080)
  TODO_TOKEN      bearer token; overrides the saved login`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api-url", envOr("TODO_API_URL", defaultAPIURL), "server URL")
	flags.StringVar(&c.tokenFile, "token-file", defaultTokenFile(), "where the login token is saved")

	root.AddCommand(
		c.newRegisterCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newWhoamiCmd(),
		c.newListCmd(),
		c.newNextCmd(),
		c.newShowCmd(),
		c.newAddCmd(),
		c.newEditCmd(),
		c.newDoneCmd(),
		c.newRmCmd(),
		c.newCategoriesCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".todo", "token")
	}
	return filepath.Join(dir, "todo", "token")
}

// client builds an API client with the saved token, if there is one.
func (c *cli) client() *client.Client {
	opts := []client.Option{client.WithAppVersion(version)}
	if token := c.loadToken(); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(c.apiURL, opts...)
}

func (c *cli) loadToken() string {
	if token := os.Getenv("TODO_TOKEN"); token != "" {
		return token
	}
	data, err := os.ReadFile(c.tokenFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *cli) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(c.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(c.tokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (c *cli) clearToken() error {
	if err := os.Remove(c.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// readPassword returns flagValue, or the first line of in when it is empty.
func readPassword(in io.Reader, out io.Writer, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("TODO_PASSWORD"); v != "" {
		return v, nil
	}

	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
