package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/engine"
	"github.com/vsariola/gmsynth/gomidi"
	"github.com/vsariola/gmsynth/oto"
	"github.com/vsariola/gmsynth/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	configFile := flag.String("c", "", "Synthesizer config file (.yml). By default, 44.1 kHz 16-bit stereo.")
	soundbankFile := flag.String("b", "", "Soundbank file (.yml). By default, the built-in General MIDI soundbank.")
	input := flag.String("i", "", "Play the MIDI input whose name starts with this.")
	first := flag.Bool("first", false, "Play the first MIDI input.")
	list := flag.Bool("l", false, "List MIDI inputs and exit.")
	verbose := flag.Bool("verbose", false, "Log synthesizer notices to standard error.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Describe("gmsynth-play"))
		os.Exit(0)
	}
	if *list {
		listInputs()
		os.Exit(0)
	}
	live := *input != "" || *first
	if (flag.NArg() == 0 && !live) || *help {
		flag.Usage()
		os.Exit(0)
	}
	logger := log.New(os.Stderr, "", log.Ltime)
	config := engine.DefaultConfig()
	if *configFile != "" {
		var err error
		if config, err = engine.LoadConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *verbose {
		config.Logger = logger
	}
	scores := make([]*gmsynth.Score, 0, flag.NArg())
	for _, file := range flag.Args() {
		score, err := gmsynth.LoadScore(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not load score %v: %v\n", file, err)
			os.Exit(1)
		}
		scores = append(scores, score)
	}
	synth, err := engine.New(config, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *soundbankFile != "" {
		soundbank, err := gmsynth.LoadSoundbank(*soundbankFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not load soundbank: %v\n", err)
			os.Exit(1)
		}
		synth.LoadSoundbank(soundbank)
	}
	sink, err := oto.NewSink(config.Format(), time.Duration(config.Latency)*time.Microsecond)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire oto audio context: %v\n", err)
		os.Exit(1)
	}
	if err := synth.Open(sink); err != nil {
		fmt.Fprintf(os.Stderr, "could not open the synthesizer: %v\n", err)
		os.Exit(1)
	}
	defer synth.Close()
	if live {
		midiContext, err := gomidi.NewContext(logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer midiContext.Close()
		if err := midiContext.Open(*input, *first, synth.Receiver()); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		logger.Printf("playing MIDI input %q", midiContext.Input())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			logger.Printf("caught signal %s: shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, score := range scores {
			if err := play(gctx, synth, score); err != nil {
				return err
			}
		}
		if live {
			<-gctx.Done()
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// play schedules the events of score after the current stream position
// and waits until the score has been heard.
func play(ctx context.Context, synth *engine.Synthesizer, score *gmsynth.Score) error {
	start := synth.MicrosecondPosition() + synth.Latency()
	for _, e := range score.Events {
		if err := synth.Receiver().Send(e.Msg, start+int64(math.Round(e.Time*1e6))); err != nil {
			return err
		}
	}
	end := start + int64(math.Round(score.Length()*1e6))
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for synth.MicrosecondPosition() < end {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func listInputs() {
	midiContext, err := gomidi.NewContext(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer midiContext.Close()
	inputs, err := midiContext.Inputs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	for _, name := range inputs {
		fmt.Println(name)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "gmsynth command line utility for playing MIDI input and .yml MIDI scores.\nUsage: %s [flags] [score ...]\n", os.Args[0])
	flag.PrintDefaults()
}
