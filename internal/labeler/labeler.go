package labeler

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// TokenLabeler attaches descriptive labels to tokens based on their name
// and symbol. Labels ride along on alerts as hashtags and are stored with
// the alert row; they never influence safety or tier decisions.
type TokenLabeler struct {
	Rules  []LabelRule
	Logger *zap.Logger
}

type LabelRule struct {
	Label       string
	NameRegex   []string
	SymbolMatch []string
	Confidence  float64

	compiled []*regexp.Regexp
}

// Label is one matched rule, serialized into the alert's labels column.
type Label struct {
	Name       string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func DefaultRules() []LabelRule {
	return []LabelRule{
		{
			Label: "meme",
			NameRegex: []string{
				`(?i)(doge|shiba|pepe|wojak|chad|moon|rocket|baby\s)`,
				`(?i)\binu\b`,
			},
			SymbolMatch: []string{"DOGE", "SHIB", "PEPE", "WIF", "BONK", "FLOKI"},
			Confidence:  0.90,
		},
		{
			Label: "dog",
			NameRegex: []string{
				`(?i)(doge|shib|pup|woof|corgi|\bdog\b)`,
				`(?i)\binu\b`,
			},
			Confidence: 0.90,
		},
		{
			Label: "cat",
			NameRegex: []string{
				`(?i)(\bcat\b|kitt|meow|neko)`,
			},
			SymbolMatch: []string{"POPCAT", "MEW"},
			Confidence:  0.90,
		},
		{
			Label: "ai",
			NameRegex: []string{
				`(?i)\b(ai|gpt|agent|neural)\b`,
			},
			Confidence: 0.85,
		},
		{
			Label: "celebrity",
			NameRegex: []string{
				`(?i)(elon|musk|trump|kanye|drake)`,
			},
			Confidence: 0.85,
		},
		{
			Label: "defi",
			NameRegex: []string{
				`(?i)(swap|yield|farm|stake|vault|finance)`,
			},
			Confidence: 0.80,
		},
		{
			Label: "bait",
			NameRegex: []string{
				`(?i)(airdrop|claim|\bfree\b|bonus|reward|give\s?away|\btest\b)`,
			},
			Confidence: 0.95,
		},
	}
}

// Label evaluates every rule against the token; each matching rule yields
// one label.
func (l *TokenLabeler) Label(name, symbol string) []Label {
	if l == nil {
		return nil
	}
	if len(l.Rules) == 0 {
		l.Rules = DefaultRules()
	}
	l.compile()

	name = strings.TrimSpace(name)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var out []Label
	for _, rule := range l.Rules {
		if matchAny(rule, name) || matchSymbol(rule, symbol) {
			out = append(out, Label{Name: rule.Label, Confidence: rule.Confidence})
		}
	}
	return out
}

func (l *TokenLabeler) compile() {
	for i := range l.Rules {
		if len(l.Rules[i].compiled) > 0 {
			continue
		}
		for _, raw := range l.Rules[i].NameRegex {
			re, err := regexp.Compile(raw)
			if err != nil {
				if l.Logger != nil {
					l.Logger.Warn("label rule regex compile failed", zap.String("label", l.Rules[i].Label), zap.String("regex", raw), zap.Error(err))
				}
				continue
			}
			l.Rules[i].compiled = append(l.Rules[i].compiled, re)
		}
	}
}

func matchAny(rule LabelRule, name string) bool {
	if name == "" {
		return false
	}
	for _, re := range rule.compiled {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func matchSymbol(rule LabelRule, symbol string) bool {
	if symbol == "" {
		return false
	}
	for _, s := range rule.SymbolMatch {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}
