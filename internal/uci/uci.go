package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hailam/heimdall/internal/board"
	"github.com/hailam/heimdall/internal/engine"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	// Position history for repetition detection
	positionHashes []uint64

	// NNUE configuration
	evalFile string

	// Search state
	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool
	pondering     atomic.Bool

	// Options
	chess960     bool
	moveOverhead time.Duration
	ponderOn     bool
	weirdTCs     bool

	// CPU profiling
	profileFile *os.File
}

// New creates a new UCI protocol handler.
func New(eng *engine.Engine) *UCI {
	return &UCI{
		engine:       eng,
		position:     board.NewPosition(),
		moveOverhead: 30 * time.Millisecond,
	}
}

// Run starts the UCI main loop.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "ponderhit":
			u.handlePonderHit()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "debug":
			u.handleDebug(args)
		case "d":
			fmt.Println(u.position.String())
		case "perft":
			u.handlePerft(args)
		}
	}
}

// handleUCI responds to the "uci" command, declaring every option spec §6
// requires engines to recognize.
func (u *UCI) handleUCI() {
	fmt.Println("id name Heimdall")
	fmt.Println("id author Heimdall Contributors")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 33554432")
	fmt.Println("option name Threads type spin default 1 min 1 max 1024")
	fmt.Println("option name MultiPV type spin default 1 min 1 max 218")
	fmt.Println("option name UCI_Chess960 type check default false")
	fmt.Println("option name MoveOverhead type spin default 30 min 0 max 30000")
	fmt.Println("option name Ponder type check default false")
	fmt.Println("option name EvalFile type string default <default>")
	fmt.Println("option name TTClear type button")
	fmt.Println("option name HClear type button")
	fmt.Println("option name EnableWeirdTCs type check default false")
	fmt.Println("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.engine.Clear()
	u.position = board.NewPosition()
	u.positionHashes = []uint64{u.position.Hash}
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	u.positionHashes = nil
	var moveStart int

	if args[0] == "startpos" {
		u.position = board.NewPosition()
		moveStart = 1
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	} else if args[0] == "fen" {
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}

		fenStr := strings.Join(args[1:fenEnd], " ")
		pos, err := board.ParseFEN(fenStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "info string Invalid FEN: %v\n", err)
			return
		}
		u.position = pos

		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	} else {
		return
	}

	u.positionHashes = append(u.positionHashes, u.position.Hash)

	if moveStart < len(args) {
		for _, moveStr := range args[moveStart:] {
			move, err := board.ParseMove(moveStr, u.position)
			if err != nil {
				fmt.Fprintf(os.Stderr, "info string Invalid move: %s (%v)\n", moveStr, err)
				return
			}
			u.position.MakeMove(move)
			u.position.UpdateCheckers()
			u.positionHashes = append(u.positionHashes, u.position.Hash)
		}
	}

	if board.DebugMoveValidation {
		legal := u.position.GenerateLegalMoves()
		var legalStrs []string
		for i := 0; i < legal.Len() && i < 8; i++ {
			legalStrs = append(legalStrs, u.moveText(legal.Get(i)))
		}
		fmt.Fprintf(os.Stderr, "info string DEBUG: after position setup hash=%016x inCheck=%v legal=%v...\n",
			u.position.Hash, u.position.InCheck(), legalStrs)
	}
}

// moveText renders a move as UCI wire text, honoring UCI_Chess960: when on,
// castling is sent as king-captures-rook instead of the standard e1g1 form.
func (u *UCI) moveText(m board.Move) string {
	if m == board.NoMove {
		return "0000"
	}
	if u.chess960 && m.IsCastling() {
		s := m.From().String() + m.To().String()
		return s
	}
	return m.UCIString(u.position)
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth         int
	Nodes         uint64
	MoveTime      time.Duration
	Infinite      bool
	WTime         time.Duration
	BTime         time.Duration
	WInc          time.Duration
	BInc          time.Duration
	MovesToGo     int
	Ponder        bool
	SearchMovesRaw []string
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	opts := u.parseGoOptions(args)

	u.engine.SetPositionHistory(u.positionHashes)

	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.sendInfo(info)
	}

	limits := engine.UCILimits{
		Time:         [2]time.Duration{opts.WTime, opts.BTime},
		Inc:          [2]time.Duration{opts.WInc, opts.BInc},
		MovesToGo:    opts.MovesToGo,
		MoveTime:     opts.MoveTime,
		Depth:        opts.Depth,
		Nodes:        opts.Nodes,
		Infinite:     opts.Infinite,
		Ponder:       opts.Ponder,
		MoveOverhead: u.moveOverhead,
	}
	ply := len(u.positionHashes)

	u.searching = true
	u.stopRequested.Store(false)
	u.pondering.Store(opts.Ponder)
	u.searchDone = make(chan struct{})

	pos := u.position.Copy()
	rootPos := u.position.Copy()

	go func() {
		defer close(u.searchDone)

		bestMove := u.engine.SearchWithUCILimits(pos, limits, ply)

		u.searching = false

		if bestMove != board.NoMove {
			legal := rootPos.GenerateLegalMoves()
			found := false
			for i := 0; i < legal.Len(); i++ {
				if legal.Get(i) == bestMove {
					found = true
					break
				}
			}
			if found {
				fmt.Printf("bestmove %s\n", u.moveText(bestMove))
				return
			}
			fmt.Fprintf(os.Stderr, "info string CRITICAL: search returned illegal move %s\n", bestMove.String())
		}

		legal := rootPos.GenerateLegalMoves()
		if legal.Len() > 0 {
			fmt.Printf("bestmove %s\n", u.moveText(legal.Get(0)))
		} else {
			fmt.Println("bestmove 0000")
		}
	}()
}

// parseGoOptions parses "go" command arguments.
func (u *UCI) parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				opts.Nodes = n
				i++
			}
		case "mate":
			// Mate-in-N search is expressed as a depth cap; the search
			// itself recognizes mate scores regardless of depth limit.
			if i+1 < len(args) {
				n, _ := strconv.Atoi(args[i+1])
				opts.Depth = n * 2
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "ponder":
			opts.Ponder = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "searchmoves":
			opts.SearchMovesRaw = args[i+1:]
			i = len(args)
		}
	}

	if opts.MovesToGo == 0 && (opts.WTime > 0 || opts.BTime > 0) && !u.weirdTCs {
		if opts.WInc == 0 && opts.BInc == 0 {
			fmt.Fprintf(os.Stderr, "info string warning: zero increment, sudden-death time control\n")
		}
	}

	return opts
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}
	if info.MultiPV > 0 {
		parts = append(parts, fmt.Sprintf("multipv %d", info.MultiPV))
	}

	if info.Score > engine.MateScore-100 {
		mateIn := (engine.MateScore - info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else if info.Score < -engine.MateScore+100 {
		mateIn := -(engine.MateScore + info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))

	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		validPV := make([]string, 0, len(info.PV))
		testPos := u.position.Copy()
		for _, move := range info.PV {
			legal := testPos.GenerateLegalMoves()
			isLegal := false
			for i := 0; i < legal.Len(); i++ {
				if legal.Get(i) == move {
					isLegal = true
					break
				}
			}
			if !isLegal {
				break
			}
			validPV = append(validPV, u.moveText(move))
			testPos.MakeMove(move)
		}
		if len(validPV) > 0 {
			parts = append(parts, "pv "+strings.Join(validPV, " "))
		}
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

// handleStop stops the current search.
func (u *UCI) handleStop() {
	if u.searching {
		u.stopRequested.Store(true)
		u.pondering.Store(false)
		u.engine.Stop()
		<-u.searchDone
	}
}

// handlePonderHit ends pondering: the time manager rebases its deadlines to
// "now + original budget" since the ponder period isn't charged to the move.
func (u *UCI) handlePonderHit() {
	u.pondering.Store(false)
	u.engine.PonderHit()
}

// handleQuit exits the program.
func (u *UCI) handleQuit() {
	u.handleStop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		fmt.Fprintf(os.Stderr, "info string CPU profile saved\n")
	}
	os.Exit(0)
}

// handleDebug processes the "debug on|off" command.
func (u *UCI) handleDebug(args []string) {
	if len(args) == 0 {
		return
	}
	board.DebugMoveValidation = args[0] == "on"
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err == nil && mb >= 1 {
			u.engine.SetHashSizeMB(mb)
		}
	case "threads":
		n, err := strconv.Atoi(value)
		if err == nil && n >= 1 {
			u.engine.SetThreads(n)
		}
	case "multipv":
		n, err := strconv.Atoi(value)
		if err == nil && n >= 1 {
			u.engine.SetMultiPV(n)
		}
	case "uci_chess960":
		u.chess960 = strings.ToLower(value) == "true"
	case "moveoverhead":
		ms, err := strconv.Atoi(value)
		if err == nil && ms >= 0 {
			u.moveOverhead = time.Duration(ms) * time.Millisecond
		}
	case "ponder":
		u.ponderOn = strings.ToLower(value) == "true"
	case "evalfile":
		u.evalFile = value
		if value != "" && value != "<default>" {
			if err := u.engine.LoadNNUE(value); err != nil {
				fmt.Fprintf(os.Stderr, "info string failed to load NNUE: %v\n", err)
				return
			}
		}
	case "ttclear":
		u.engine.Clear()
	case "hclear":
		u.engine.Clear()
	case "enableweirdtcs":
		u.weirdTCs = strings.ToLower(value) == "true"
	case "cpupinning":
		u.engine.SetCPUPinning(strings.ToLower(value) == "true")
	case "cpuprofile":
		if u.profileFile != nil {
			pprof.StopCPUProfile()
			u.profileFile.Close()
			fmt.Fprintf(os.Stderr, "info string CPU profile stopped\n")
			u.profileFile = nil
		}
		if value != "" && value != "stop" {
			f, err := os.Create(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "info string failed to create profile: %v\n", err)
				return
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				fmt.Fprintf(os.Stderr, "info string failed to start profile: %v\n", err)
				return
			}
			u.profileFile = f
			fmt.Fprintf(os.Stderr, "info string CPU profiling to %s\n", value)
		}
	}
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		fmt.Printf("NPS: %.0f\n", nps)
	}
}
