// Command predict scores review text with a checkpoint written by the
// sentiment command. Sentences come from the arguments, or one per line
// from standard input when there are none.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/FlavioCFOliveira/GoSentiment/internal/config"
	"github.com/FlavioCFOliveira/GoSentiment/internal/data"
	"github.com/FlavioCFOliveira/GoSentiment/internal/layer"
	"github.com/FlavioCFOliveira/GoSentiment/internal/logging"
	"github.com/FlavioCFOliveira/GoSentiment/internal/net"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		logging.Logger.Error("Prediction failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string, in io.Reader, out io.Writer) error {
	model, snap, err := net.LoadModel(cfg.CheckpointFile, layer.GetDefaultDevice())
	if err != nil {
		return err
	}
	vocab, err := data.LoadVocabulary(cfg.VocabFile)
	if err != nil {
		return err
	}
	if vocab.Len() != model.Config().VocabSize {
		return fmt.Errorf("vocabulary has %d tokens, checkpoint expects %d", vocab.Len(), model.Config().VocabSize)
	}
	logging.Logger.Debug("Checkpoint loaded", "run_id", snap.RunID, "epoch", snap.Epoch, "valid_loss", snap.ValidLoss)

	predictor := net.NewPredictor(model, vocab)
	score := func(text string) error {
		p, err := predictor.PredictSentiment(text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%.4f\t%s\n", p, text)
		return err
	}

	if len(args) > 0 {
		return score(strings.Join(args, " "))
	}
	// Blank lines on standard input are skipped.
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := score(scanner.Text()); err != nil && !errors.Is(err, net.ErrEmptyInput) {
			return err
		}
	}
	return scanner.Err()
}
