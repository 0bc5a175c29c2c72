package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/deepgram/studio/internal/client"
	"github.com/deepgram/studio/internal/services/chat"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rootCmd = &cobra.Command{
		Use:           "studio",
		Short:         "Chat and image generation client",
		Long:          "studio talks to a running studio server: stream a conversation or generate and edit images.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE:  runChat,
	}

	imageCmd = &cobra.Command{
		Use:   "image",
		Short: "Generate an image, or edit one with --image",
		RunE:  runImage,
	}
)

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "studio server URL")

	imageCmd.Flags().StringP("prompt", "p", "", "what to generate or how to edit the image")
	imageCmd.Flags().StringP("image", "i", "", "path of an image to edit")
	imageCmd.Flags().StringP("out", "o", "", "where to write the generated image")
	imageCmd.MarkFlagRequired("prompt")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(imageCmd)

	viper.SetEnvPrefix("studio")
	viper.AutomaticEnv()
	viper.BindPFlags(rootCmd.PersistentFlags())
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	return client.New(viper.GetString("server"), nil)
}

func runChat(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	session := chat.NewSession(client.NewChatStreamer(c, uuid.New().String()))
	return chatLoop(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
}

// chatLoop reads one prompt per line until EOF or /quit. Ctrl-C cancels the
// reply that is streaming, not the conversation.
func chatLoop(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Type a message, /quit to exit.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return nil
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		_, err := session.Send(turnCtx, line, func(delta string) {
			fmt.Fprint(out, delta)
		})
		stop()

		switch {
		case errors.Is(err, chat.ErrEmptyPrompt):
			continue
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(out, "\n[cancelled]")
		case err != nil:
			fmt.Fprintf(out, "\n[error] %v\n", err)
		default:
			fmt.Fprintln(out)
		}
	}
}

func runImage(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	imagePath, _ := cmd.Flags().GetString("image")
	outPath, _ := cmd.Flags().GetString("out")

	c, err := newClient()
	if err != nil {
		return err
	}

	var image string
	if imagePath != "" {
		if image, err = client.LoadImage(imagePath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := client.NewImageGenerator(c).Generate(ctx, prompt, image)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Text != "" {
		fmt.Fprintln(out, result.Text)
	}

	if result.ImageURL == "" {
		fmt.Fprintln(out, "No image was returned.")
		return nil
	}
	if outPath == "" {
		outPath = "studio-" + uuid.New().String()[:8] + extensionFor(result.ImageURL)
	}
	if err := client.SaveImage(outPath, result.ImageURL); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	fmt.Fprintf(out, "Image saved to %s\n", outPath)
	return nil
}

func extensionFor(imageURL string) string {
	switch {
	case strings.HasPrefix(imageURL, "data:image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(imageURL, "data:image/webp"):
		return ".webp"
	case strings.HasPrefix(imageURL, "data:image/gif"):
		return ".gif"
	default:
		return ".png"
	}
}
