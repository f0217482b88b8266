package game

// Award records who took a scoring category.
type Award string

const (
	AwardAbsent Award = "absent"
	AwardTeamA  Award = "team_a"
	AwardTeamB  Award = "team_b"
	AwardTie    Award = "tie"
)

func awardFor(t Team) Award {
	if t == TeamA {
		return AwardTeamA
	}
	return AwardTeamB
}

// Breakdown explains a round's points category by category.
type Breakdown struct {
	Cards           Award          `json:"cards"`
	Diamonds        Award          `json:"diamonds"`
	Sevens          Award          `json:"sevens"`
	SevenOfDiamonds Award          `json:"sevenOfDiamonds"`
	CardCounts      [TeamCount]int `json:"cardCounts"`
	DiamondCounts   [TeamCount]int `json:"diamondCounts"`
	SevenCounts     [TeamCount]int `json:"sevenCounts"`
	SixCounts       [TeamCount]int `json:"sixCounts"`
	Chkobbas        [TeamCount]int `json:"chkobbas"`
}

type RoundResult struct {
	Points    [TeamCount]int `json:"points"`
	Breakdown Breakdown      `json:"breakdown"`
}

// ScoreRound tallies the capture piles of a finished round. It only reads
// its inputs.
func ScoreRound(piles [TeamCount][]Card, chkobbas [TeamCount]int) RoundResult {
	var b Breakdown
	b.Chkobbas = chkobbas
	b.SevenOfDiamonds = AwardAbsent
	for team, pile := range piles {
		b.CardCounts[team] = len(pile)
		for _, c := range pile {
			if c.Suit == Diamonds {
				b.DiamondCounts[team]++
			}
			switch c.Rank {
			case RankSeven:
				b.SevenCounts[team]++
			case RankSix:
				b.SixCounts[team]++
			}
			if c.Is(Diamonds, RankSeven) {
				b.SevenOfDiamonds = awardFor(Team(team))
			}
		}
	}

	b.Cards = compare(b.CardCounts, AwardAbsent)
	b.Diamonds = compare(b.DiamondCounts, AwardAbsent)
	switch {
	case b.SevenCounts[TeamA] == 0 && b.SevenCounts[TeamB] == 0:
		b.Sevens = AwardAbsent
	case b.SevenCounts[TeamA] != b.SevenCounts[TeamB]:
		b.Sevens = compare(b.SevenCounts, AwardAbsent)
	default:
		b.Sevens = compare(b.SixCounts, AwardTie)
	}

	res := RoundResult{Breakdown: b}
	for _, a := range []Award{b.Cards, b.Diamonds, b.Sevens, b.SevenOfDiamonds} {
		switch a {
		case AwardTeamA:
			res.Points[TeamA]++
		case AwardTeamB:
			res.Points[TeamB]++
		}
	}
	res.Points[TeamA] += chkobbas[TeamA]
	res.Points[TeamB] += chkobbas[TeamB]
	return res
}

// compare awards the strictly larger count; equal counts yield onTie.
func compare(counts [TeamCount]int, onTie Award) Award {
	switch {
	case counts[TeamA] > counts[TeamB]:
		return AwardTeamA
	case counts[TeamB] > counts[TeamA]:
		return AwardTeamB
	default:
		return onTie
	}
}
