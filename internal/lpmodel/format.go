package lpmodel

import (
	"strconv"
	"strings"
)

// String renders the problem as readable LP text: objective, named rows, bounds
func (p *Problem) String() string {
	var b strings.Builder

	b.WriteString(p.Name)
	b.WriteString(":\n")
	b.WriteString(strings.ToUpper(p.Direction.String()))
	b.WriteString("\n")
	b.WriteString(p.formatExpr(p.Objective()))
	b.WriteString("\nSUBJECT TO\n")

	for _, c := range p.constraints {
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(p.formatExpr(c.Expr))
		b.WriteString(" ")
		b.WriteString(c.Sense.String())
		b.WriteString(" ")
		b.WriteString(formatNumber(c.RHS))
		b.WriteString("\n")
	}

	b.WriteString("\nVARIABLES\n")
	for _, v := range p.variables {
		b.WriteString(formatNumber(v.Lower))
		b.WriteString(" <= ")
		b.WriteString(v.Name)
		b.WriteString(" <= ")
		b.WriteString(formatNumber(v.Upper))
		b.WriteString(" Continuous\n")
	}

	return b.String()
}

// formatExpr writes non-zero terms as "c*name + ..."; an all-zero row renders as "0"
func (p *Problem) formatExpr(e Expr) string {
	var terms []string
	for i, c := range e {
		if c == 0 {
			continue
		}
		name := p.variables[i].Name
		switch {
		case c == 1:
			terms = append(terms, name)
		case c == -1:
			terms = append(terms, "-"+name)
		default:
			terms = append(terms, formatNumber(c)+"*"+name)
		}
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.ReplaceAll(strings.Join(terms, " + "), "+ -", "- ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', 12, 64)
}
