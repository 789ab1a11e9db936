package doc

// one rune of the DP edit script, location relative to the old text
type edit struct {
	add bool
	loc int
	ch  rune
}

// create a diff between two rune slices
// returns the edit script turning s1 into s2,
// in increasing location order
func diffRunes(s1, s2 []rune) []edit {
	dp := make([][]int, len(s1)+1)
	dp[0] = make([]int, len(s2)+1)

	// DP to calculate diff
	for j := 0; j < len(s2)+1; j++ {
		dp[0][j] = j
	}

	for i := 1; i < len(s1)+1; i++ {
		dp[i] = make([]int, len(s2)+1)
		dp[i][0] = i

		for j := 1; j < len(s2)+1; j++ {
			dp[i][j] = min(dp[i][j-1], dp[i-1][j]) + 1

			if s1[i-1] == s2[j-1] && dp[i-1][j-1] < dp[i][j] {
				dp[i][j] = dp[i-1][j-1]
			}
		}
	}

	i := len(s1)
	j := len(s2)

	res := []edit{}

	// collect diff into slice
	for i > 0 || j > 0 {
		if i == 0 {
			res = append(res, edit{add: true, loc: i, ch: s2[j-1]})
			j--
		} else if j == 0 {
			res = append(res, edit{add: false, loc: i - 1, ch: s1[i-1]})
			i--
		} else {
			if s1[i-1] == s2[j-1] && dp[i][j] == dp[i-1][j-1] {
				i--
				j--
			} else {
				if dp[i][j] == dp[i][j-1]+1 {
					res = append(res, edit{add: true, loc: i, ch: s2[j-1]})
					j--
				} else {
					res = append(res, edit{add: false, loc: i - 1, ch: s1[i-1]})
					i--
				}
			}
		}
	}

	i = 0
	j = len(res) - 1

	// reverse order
	for i < j {
		res[i], res[j] = res[j], res[i]
		i++
		j--
	}

	return res
}

// a run of consecutive same-kind edits, as one patch step with a
// position valid at sequential application time
type patch struct {
	add  bool
	pos  int
	text []rune
}

// coalesce a per-rune edit script into run patches whose positions
// account for the runs applied before them
func coalesce(script []edit) []patch {
	res := []patch{}
	delta := 0

	for i := 0; i < len(script); {
		e := script[i]
		j := i + 1

		if e.add {
			// adjacent inserts at the same old location form one run
			text := []rune{e.ch}
			for j < len(script) && script[j].add && script[j].loc == e.loc {
				text = append(text, script[j].ch)
				j++
			}
			res = append(res, patch{add: true, pos: e.loc + delta, text: text})
			delta += len(text)
		} else {
			// deletes of consecutive old locations form one run
			n := 1
			for j < len(script) && !script[j].add && script[j].loc == e.loc+n {
				n++
				j++
			}
			res = append(res, patch{add: false, pos: e.loc + delta, text: editRun(script[i:j]).runes()})
			delta -= n
		}
		i = j
	}

	return res
}

type editRun []edit

func (es editRun) runes() []rune {
	rs := make([]rune, len(es))
	for i, e := range es {
		rs[i] = e.ch
	}
	return rs
}
