package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("model", "", "model id to target; defaults to the active model")
	chatCmd.Flags().Float64("temperature", 0, "sampling temperature override (0 leaves unset)")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive, non-streaming chat session against a loaded model",
	RunE:  runChat,
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestWire struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
}

func runChat(cmd *cobra.Command, args []string) error {
	model, _ := cmd.Flags().GetString("model")
	var temperature *float64
	if v, _ := cmd.Flags().GetFloat64("temperature"); v != 0 {
		temperature = &v
	}

	var history []chatMessage
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Type a message and press enter; Ctrl-D to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		history = append(history, chatMessage{Role: "user", Content: line})

		var result struct {
			Choices []struct {
				Message chatMessage `json:"message"`
			} `json:"choices"`
		}
		err := client().post("/api/v1/chat/completions", chatRequestWire{
			Model:       model,
			Messages:    history,
			Temperature: temperature,
		}, &result)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if len(result.Choices) == 0 {
			continue
		}
		reply := result.Choices[0].Message
		history = append(history, reply)
		fmt.Println(reply.Content)
	}
}
