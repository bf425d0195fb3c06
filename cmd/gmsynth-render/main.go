package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsariola/gmsynth"
	"github.com/vsariola/gmsynth/engine"
	"github.com/vsariola/gmsynth/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, the files are placed in the working directory.")
	configFile := flag.String("c", "", "Synthesizer config file (.yml). By default, 44.1 kHz 16-bit stereo.")
	soundbankFile := flag.String("b", "", "Soundbank file (.yml). By default, the built-in General MIDI soundbank.")
	rawOut := flag.Bool("r", false, "Output the rendered score as .raw file, in the sample format of the config.")
	wavOut := flag.Bool("w", false, "Output the rendered score as .wav file (default behaviour when no other output is defined).")
	verbose := flag.Bool("verbose", false, "Log synthesizer notices to standard error.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Describe("gmsynth-render"))
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*wavOut = true
	}
	config := engine.DefaultConfig()
	if *configFile != "" {
		var err error
		if config, err = engine.LoadConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *verbose {
		config.Logger = log.New(os.Stderr, "", log.Ltime)
	}
	var soundbank *gmsynth.Soundbank
	if *soundbankFile != "" {
		var err error
		if soundbank, err = gmsynth.LoadSoundbank(*soundbankFile); err != nil {
			fmt.Fprintf(os.Stderr, "could not load soundbank: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			dir := *directory
			if dir == "" {
				var err error
				if dir, err = os.Getwd(); err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %w", dir, err)
			}
			_, name := filepath.Split(filename)
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %w", f, err)
			}
			return nil
		}
		score, err := gmsynth.LoadScore(filename)
		if err != nil {
			return err
		}
		buffer, err := render(config, soundbank, score)
		if err != nil {
			return err
		}
		if *rawOut {
			raw, err := gmsynth.Raw(buffer, config.Format())
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %w", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %w", err)
			}
		}
		if *wavOut {
			wav, err := gmsynth.Wav(buffer, config.Format())
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %w", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %w", err)
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		files := []string{param}
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			if files, err = filepath.Glob(filepath.Join(param, "*.yml")); err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
		}
		for _, file := range files {
			if err := process(file); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

// render plays the score through a new synthesizer and returns the
// interleaved samples.
func render(config engine.Config, soundbank *gmsynth.Soundbank, score *gmsynth.Score) ([]float32, error) {
	synth, err := engine.New(config, nil)
	if err != nil {
		return nil, err
	}
	if soundbank != nil {
		synth.LoadSoundbank(soundbank)
	}
	if err := synth.Open(nil); err != nil {
		return nil, err
	}
	defer synth.Close()
	for _, e := range score.Events {
		if err := synth.Receiver().Send(e.Msg, int64(math.Round(e.Time*1e6))); err != nil {
			return nil, fmt.Errorf("could not send event at %vs: %w", e.Time, err)
		}
	}
	frames := int(math.Ceil(score.Length() * config.SampleRate))
	buffer := make([]float32, frames*config.AudioChannels)
	if err := synth.Render(buffer); err != nil {
		return nil, fmt.Errorf("rendering failed: %w", err)
	}
	return buffer, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "gmsynth command line utility for rendering .yml MIDI scores to audio files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
