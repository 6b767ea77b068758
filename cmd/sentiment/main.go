// Command sentiment trains the BiLSTM review classifier on the IMDB corpus,
// keeps the checkpoint with the best validation loss, reports test metrics
// and scores two example sentences.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/FlavioCFOliveira/GoSentiment/internal/config"
	"github.com/FlavioCFOliveira/GoSentiment/internal/data"
	"github.com/FlavioCFOliveira/GoSentiment/internal/layer"
	"github.com/FlavioCFOliveira/GoSentiment/internal/logging"
	"github.com/FlavioCFOliveira/GoSentiment/internal/metrics"
	"github.com/FlavioCFOliveira/GoSentiment/internal/net"
	"github.com/FlavioCFOliveira/GoSentiment/internal/opt"
)

var examples = []string{
	"This film is terrible",
	"Quentin Tarantino returns, refreshed, with this funny, beautiful period piece, " +
		"wrapping his story's loopy laces around movie lore and history, " +
		"and mixing life and art into a cool, wild collage",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Logger.Error("Training failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	runID := uuid.New()
	log := logging.WithRun(runID.String())
	seed := uint64(cfg.Seed)

	// Step 1: corpus
	log.Info("Loading IMDB", "dir", cfg.DataDir)
	fullTrain, test, err := data.LoadIMDB(cfg.DataDir, data.WordTokenizer{}, data.LoadOptions{
		MaxPerClass: cfg.MaxPerClass,
		MaxTokens:   cfg.MaxSeqLen,
	})
	if err != nil {
		return err
	}
	train, valid := data.SplitExamples(fullTrain, cfg.TrainSplit, rand.New(rand.NewPCG(seed, 0)))
	fmt.Printf("Number of training examples: %d\n", len(train))
	fmt.Printf("Number of validation examples: %d\n", len(valid))
	fmt.Printf("Number of testing examples: %d\n", len(test))

	// Step 2: vocabulary and pretrained vectors
	vocab := data.BuildVocabulary(train, cfg.MaxVocabSize, 1)
	fmt.Printf("Unique tokens in TEXT vocabulary: %d\n", vocab.Len())
	if err := vocab.Save(cfg.VocabFile); err != nil {
		return err
	}

	var vecs *data.Vectors
	if cfg.VectorsFile != "" {
		log.Info("Loading vectors", "file", cfg.VectorsFile)
		vecs, err = data.LoadVectorsFile(cfg.VectorsFile, vocab.Contains)
		if err != nil {
			return err
		}
	}
	pretrained, found, err := data.EmbeddingMatrix(vocab, vecs, cfg.EmbeddingDim, rand.NewPCG(seed, 1))
	if err != nil {
		return err
	}
	log.Info("Pretrained vectors matched", "found", found, "vocab", vocab.Len())

	// Step 3: iterators
	rng := rand.New(rand.NewPCG(seed, seed))
	trainIt, err := data.NewBucketIterator(train, vocab, cfg.BatchSize, true, rng)
	if err != nil {
		return err
	}
	validIt, err := data.NewBucketIterator(valid, vocab, cfg.BatchSize, false, nil)
	if err != nil {
		return err
	}
	testIt, err := data.NewBucketIterator(test, vocab, cfg.BatchSize, false, nil)
	if err != nil {
		return err
	}

	// Step 4: model
	dev := layer.GetDefaultDevice()
	model, err := net.New(net.Config{
		VocabSize:     vocab.Len(),
		EmbeddingDim:  cfg.EmbeddingDim,
		HiddenDim:     cfg.HiddenDim,
		NLayers:       cfg.NLayers,
		Bidirectional: cfg.Bidirectional,
		Dropout:       cfg.Dropout,
		PadIdx:        vocab.PadIndex(),
	}, dev, rng)
	if err != nil {
		return err
	}
	if err := model.Summary(os.Stdout); err != nil {
		return err
	}

	if err := model.Embedding.CopyFrom(pretrained); err != nil {
		return err
	}
	model.Embedding.ZeroRow(vocab.UnkIndex())
	model.Embedding.ZeroRow(vocab.PadIndex())
	fmt.Printf("Embedding matrix: [%d, %d]\n", model.Embedding.NumEmbeddings(), model.Embedding.EmbeddingDim())

	// Step 5: train
	recorder := metrics.NewRecorder()
	ckpt := net.NewModelCheckpoint(cfg.CheckpointFile, runID)
	ckpt.Logger = log
	ckpt.OnSave = func(_ int, validLoss float64) { recorder.CheckpointSaved(validLoss) }

	callbacks := []net.Callback{
		ckpt,
		net.ConsoleLogger{Out: os.Stdout},
		net.MetricsCallback{Recorder: recorder},
	}
	if cfg.HistoryFile != "" {
		callbacks = append(callbacks, net.NewCSVLogger(cfg.HistoryFile, false))
	}

	optimizer, err := opt.ByName(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return err
	}
	var scheduler opt.Scheduler
	switch cfg.LRSchedule {
	case "step":
		scheduler = opt.NewStepLR(optimizer, cfg.LRStepSize, cfg.LRGamma)
	case "plateau":
		scheduler = opt.NewReduceLROnPlateau(optimizer, cfg.LRGamma, cfg.LRPatience, 0, 0)
	}
	if scheduler != nil {
		sc := net.NewSchedulerCallback(scheduler)
		sc.Logger = log
		callbacks = append(callbacks, sc)
	}

	trainer := net.NewTrainer(model, optimizer, rng)
	trainer.GradClip = cfg.GradClip
	trainer.Logger = log
	if _, err := trainer.Fit(ctx, trainIt, validIt, cfg.NEpochs, callbacks...); err != nil {
		return err
	}

	// Step 6: test with the best checkpoint
	if err := ckpt.Restore(model); err != nil {
		return err
	}
	testRes, err := trainer.Evaluate(ctx, testIt)
	if err != nil {
		return err
	}
	recorder.ObserveSplit(metrics.SplitTest, testRes.Loss, testRes.Accuracy)
	fmt.Printf("Test Loss: %.3f | Test Acc: %.2f%%\n", testRes.Loss, testRes.Accuracy*100)

	// Step 7: example predictions
	predictor := net.NewPredictor(model, vocab)
	for _, s := range examples {
		p, err := predictor.PredictSentiment(s)
		if err != nil {
			return err
		}
		fmt.Printf("%q: %.4f\n", s, p)
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	log.Info("Run finished", "best_epoch", ckpt.BestEpoch(), "best_valid_loss", ckpt.BestLoss())
	return nil
}
