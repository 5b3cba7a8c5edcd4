package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// stateReply mirrors the monitor's state message.
type stateReply struct {
	Seq         uint64 `json:"seq"`
	Selection   string `json:"selection"`
	Warm        uint8  `json:"warm"`
	Cool        uint8  `json:"cool"`
	TestMode    bool   `json:"test_mode"`
	ServiceMode bool   `json:"service_mode"`
	Groups      []int  `json:"groups"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current light state",
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream light state changes",
	Long: `Connects to the monitor websocket and prints every state change as
it happens. The current state is printed immediately on connect.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

// fetchState pulls the current snapshot from the monitor.
func fetchState() (*stateReply, error) {
	client := &http.Client{Timeout: replyTimeout}
	resp, err := client.Get(monitorURL + "/state")
	if err != nil {
		return nil, fmt.Errorf("monitor unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("monitor returned %s", resp.Status)
	}

	var state stateReply
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("bad state payload: %v", err)
	}
	return &state, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := fetchState()
	if err != nil {
		return err
	}

	fmt.Printf("Selection:    %s\n", state.Selection)
	fmt.Printf("Warm duty:    %d\n", state.Warm)
	fmt.Printf("Cool duty:    %d\n", state.Cool)
	fmt.Printf("Test mode:    %v\n", state.TestMode)
	fmt.Printf("Service mode: %v\n", state.ServiceMode)
	fmt.Printf("Groups:      ")
	for _, g := range state.Groups {
		fmt.Printf(" 0x%02X", g)
	}
	fmt.Println()
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	u, err := url.Parse(monitorURL)
	if err != nil {
		return fmt.Errorf("invalid monitor URL: %v", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", u.String(), err)
	}
	defer conn.Close()

	fmt.Printf("Watching %s\n", u.String())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}

		var state stateReply
		if err := json.Unmarshal(data, &state); err != nil {
			continue
		}

		ts := time.Now().Format("15:04:05.000")
		fmt.Printf("[%s] %-8s warm=%-3d cool=%-3d groups=%v\n",
			ts, state.Selection, state.Warm, state.Cool, state.Groups)
	}
}
