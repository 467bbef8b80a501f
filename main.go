package main

// Terminal playground: one human against three bots on the default
// board, straight on the rule engine without the server. Handy for
// trying rule variants from the shell:
//
//	GAME_CAPTURE_ON_PASS=true go run .
import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"coppit-server/internal/board"
	"coppit-server/internal/bot"
	"coppit-server/internal/config"
	"coppit-server/internal/game"
)

func main() {
	cfg := config.Load()
	s := game.InitGame("local", board.BuildDefault(), cfg.Rules, 0)

	var err error
	s, err = game.AddPlayer(s, "you", "You", board.Red, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	bots := map[string]bot.Policy{}
	for i, name := range []string{"Capper", "Hattrick", "Tricorn"} {
		id := fmt.Sprintf("bot%d", i+1)
		s, err = game.AddPlayer(s, id, name, "", true)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		bots[id] = bot.New(cfg.Rules.BotDifficulty, cfg.Weights, int64(i+1))
	}
	s, err = game.StartGame(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	in := bufio.NewScanner(os.Stdin)
	for s.Phase != game.PhaseGameOver {
		pid := s.CurrentPlayerID()
		if policy, isBot := bots[pid]; isBot {
			s = botTurn(s, pid, policy)
			continue
		}
		s = humanTurn(s, in)
	}

	fmt.Println("\n=== game over ===")
	for _, pid := range s.TurnOrder {
		p := s.Players[pid]
		marker := " "
		for _, w := range s.Winner {
			if w == pid {
				marker = "*"
			}
		}
		fmt.Printf("%s %-10s %-7s home=%d banked=%d\n", marker, p.Name, p.Color, p.Score(), p.Points())
	}
}

func botTurn(s *game.State, pid string, policy bot.Policy) *game.State {
	act, err := policy.Decide(s, pid)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	switch act.Type {
	case "roll":
		ns, v, err := game.RollDice(s)
		if err == nil {
			fmt.Printf("%s rolls %d\n", s.Players[pid].Name, v)
			return ns
		}
	case "select_destination":
		ns, res, err := game.SelectDestination(s, pid, act.StackID, act.Target)
		if err == nil {
			describeMove(s.Players[pid].Name, res)
			return ns
		}
	case "pass":
		ns, err := game.Pass(s, pid)
		if err == nil {
			fmt.Printf("%s passes\n", s.Players[pid].Name)
			return ns
		}
	}
	fmt.Fprintf(os.Stderr, "bot %s stuck, skipping\n", pid)
	ns, _ := game.SkipTurn(s, pid)
	return ns
}

func humanTurn(s *game.State, in *bufio.Scanner) *game.State {
	switch s.Phase {
	case game.PhaseRoll:
		printBoard(s)
		fmt.Print("your turn, press enter to roll: ")
		in.Scan()
		ns, v, err := game.RollDice(s)
		if err != nil {
			fmt.Println(err)
			return s
		}
		fmt.Printf("you rolled %d\n", v)
		return ns

	case game.PhaseSelectPiece, game.PhaseSelectDirection:
		legal := game.LegalStacks(s, "you")
		if s.Phase == game.PhaseSelectDirection {
			if st := s.StackByID(s.SelectedStack); st != nil {
				legal = []*game.Stack{st}
			}
		}
		if len(legal) == 0 {
			fmt.Println("no legal moves, passing")
			ns, err := game.Pass(s, "you")
			if err != nil {
				fmt.Println(err)
				return s
			}
			return ns
		}
		type choice struct {
			stack *game.Stack
			dest  string
		}
		var choices []choice
		for _, st := range legal {
			for _, dest := range game.LegalDestinations(s, st) {
				choices = append(choices, choice{st, dest})
			}
		}
		for i, ch := range choices {
			fmt.Printf("  %2d) stack %s (%s, %d hats) -> %s\n",
				i+1, ch.stack.ID, ch.stack.NodeID, ch.stack.Size(), ch.dest)
		}
		fmt.Print("pick a move: ")
		if !in.Scan() {
			os.Exit(0)
		}
		n, err := strconv.Atoi(strings.TrimSpace(in.Text()))
		if err != nil || n < 1 || n > len(choices) {
			fmt.Println("pick a number from the list")
			return s
		}
		ch := choices[n-1]
		stackID := ch.stack.ID
		if s.Phase == game.PhaseSelectDirection {
			stackID = ""
		}
		ns, res, err := game.SelectDestination(s, "you", stackID, ch.dest)
		if err != nil {
			fmt.Println(err)
			return s
		}
		describeMove("you", res)
		return ns
	}
	return s
}

func describeMove(name string, res *game.MoveResult) {
	fmt.Printf("%s: %s -> %s", name, res.From, res.To)
	if len(res.Captured) > 0 {
		fmt.Printf(", captured %d", len(res.Captured))
	}
	if len(res.Banked) > 0 {
		fmt.Printf(", banked %d", len(res.Banked))
	}
	if len(res.Returned) > 0 {
		fmt.Printf(", %d home", len(res.Returned))
	}
	if res.ExtraRoll {
		fmt.Print(", extra roll")
	}
	fmt.Println()
}

func printBoard(s *game.State) {
	fmt.Println()
	for _, pid := range s.TurnOrder {
		p := s.Players[pid]
		fmt.Printf("%-10s %-7s box=%d banked=%d\n", p.Name, p.Color, len(p.BoxHats), len(p.BankedHats))
	}
	for _, st := range s.Stacks {
		if st.Box {
			continue
		}
		cols := make([]string, 0, st.Size())
		for _, h := range st.Pieces {
			cols = append(cols, string(h.Color))
		}
		fmt.Printf("  %s at %s [%s]\n", st.ID, st.NodeID, strings.Join(cols, "<"))
	}
}
