package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/hailam/heimdall/internal/engine"
	"github.com/hailam/heimdall/internal/uci"
)

// defaultNet is the network file name looked for in the standard search
// paths when no EvalFile option is set.
const defaultNet = "heimdall.nnue"

var (
	hashMB      = flag.Int("hash", 64, "transposition table size in MB")
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	eng := engine.NewEngine(*hashMB)

	if err := autoLoadNNUE(eng); err != nil {
		log.Printf("no trained NNUE network found: %v (using the InitRandom placeholder network)", err)
	}

	protocol := uci.New(eng)
	protocol.Run()
}

// autoLoadNNUE tries standard locations for a trained default network file;
// if none is found, the engine keeps the deterministic InitRandom network
// NewEngine already wired in.
func autoLoadNNUE(eng *engine.Engine) error {
	searchPaths := []string{
		filepath.Join(getHomeDir(), ".heimdall", "nnue"),
		"./nnue",
		".",
	}

	for _, dir := range searchPaths {
		path := filepath.Join(dir, defaultNet)
		if !fileExists(path) {
			continue
		}
		if err := eng.LoadNNUE(path); err != nil {
			log.Printf("failed to load NNUE from %s: %v", path, err)
			continue
		}
		log.Printf("NNUE loaded from %s", path)
		return nil
	}

	return os.ErrNotExist
}

func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
