package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stregea/PartyChat/internal/client"
	"github.com/stregea/PartyChat/internal/protocol"
)

var (
	username string
	host     string
	port     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "partychat",
		Short: "Console client for the PartyChat server",
		Long:  "Connects to a PartyChat server, prints the room transcript, and sends each line typed on stdin as a chat message.",
		RunE:  runChat,
	}

	rootCmd.Flags().StringVarP(&username, "username", "u", "", "display name to sign in with")
	rootCmd.Flags().StringVar(&host, "host", "localhost", "server host")
	rootCmd.Flags().IntVar(&port, "port", 12345, "server port")
	_ = rootCmd.MarkFlagRequired("username")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	conn, err := client.Dial(host, port, username)
	switch {
	case errors.Is(err, protocol.ErrUserAlreadyExists):
		return fmt.Errorf("the name %q is already signed in; pick another one", username)
	case errors.Is(err, protocol.ErrInvalidUsername):
		return errors.New("a username must not be empty")
	case err != nil:
		return err
	}
	defer func() { _ = conn.Close() }()

	room := conn.Room()
	fmt.Print(room.String())

	go func() {
		for line := range room.Updates() {
			fmt.Println(line)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-conn.Done():
			if err := conn.Err(); err != nil {
				return fmt.Errorf("disconnected: %w", err)
			}
			fmt.Println("Disconnected from server.")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := conn.Send(line); err != nil {
				return err
			}
		}
	}
}
