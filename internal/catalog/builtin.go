package catalog

import (
	"fmt"
	"strings"

	"FactorForge/internal/model"
)

var rollingWindows = []int{5, 10, 20, 30, 60}

// Builtin returns a catalog shipped with the binary by name.
func Builtin(name string) (*Catalog, error) {
	switch strings.ToLower(name) {
	case "alpha184":
		return Alpha184(), nil
	case "alpha360":
		return Alpha360(), nil
	default:
		return nil, fmt.Errorf("%w: unknown builtin catalog %q", ErrInvalidCatalog, name)
	}
}

// Alpha184 is the K-bar, price, volume and rolling statistics set.
func Alpha184() *Catalog {
	var defs []model.FactorDefinition
	add := func(name, expression string) {
		defs = append(defs, model.FactorDefinition{Name: name, Expression: expression})
	}

	add("KMID", "(close-open)/open")
	add("KLEN", "(high-low)/open")
	add("KMID2", "(close-open)/(high-low+1e-12)")
	add("KUP", "(high-max(open,close))/open")
	add("KUP2", "(high-max(open,close))/(high-low+1e-12)")
	add("KLOW", "(min(open,close)-low)/open")
	add("KLOW2", "(min(open,close)-low)/(high-low+1e-12)")
	add("KSFT", "(2*close-high-low)/open")
	add("KSFT2", "(2*close-high-low)/(high-low+1e-12)")

	for _, field := range []string{"open", "high", "low", "close", "vwap"} {
		for d := 0; d < 5; d++ {
			name := fmt.Sprintf("%s%d", strings.ToUpper(field), d)
			if d == 0 {
				add(name, field+"/close")
			} else {
				add(name, fmt.Sprintf("shift(%s,%d)/close", field, d))
			}
		}
	}
	for d := 0; d < 5; d++ {
		if d == 0 {
			add("VOLUME0", "volume/(volume+1e-12)")
		} else {
			add(fmt.Sprintf("VOLUME%d", d), fmt.Sprintf("shift(volume,%d)/(volume+1e-12)", d))
		}
	}

	const (
		up      = "max(close-shift(close,1),0)"
		down    = "max(shift(close,1)-close,0)"
		moved   = "abs(close-shift(close,1))"
		volUp   = "max(volume-shift(volume,1),0)"
		volDown = "max(shift(volume,1)-volume,0)"
		volMove = "abs(volume-shift(volume,1))"
		wvol    = "abs(close/shift(close,1)-1)*volume"
	)
	rolling := []struct {
		prefix  string
		formula func(d int) string
	}{
		{"ROC", func(d int) string { return fmt.Sprintf("shift(close,%d)/close", d) }},
		{"MAX", func(d int) string { return fmt.Sprintf("tsmax(high,%d)/close", d) }},
		{"MIN", func(d int) string { return fmt.Sprintf("tsmin(low,%d)/close", d) }},
		{"MA", func(d int) string { return fmt.Sprintf("mean(close,%d)/close", d) }},
		{"STD", func(d int) string { return fmt.Sprintf("std(close,%d)/close", d) }},
		{"BETA", func(d int) string { return fmt.Sprintf("slope(close,%d)/close", d) }},
		{"RSQR", func(d int) string { return fmt.Sprintf("rsquare(close,%d)", d) }},
		{"RESI", func(d int) string { return fmt.Sprintf("resi(close,%d)/close", d) }},
		{"QTLU", func(d int) string { return fmt.Sprintf("quantile(close,%d,0.8)/close", d) }},
		{"QTLD", func(d int) string { return fmt.Sprintf("quantile(close,%d,0.2)/close", d) }},
		{"TSRANK", func(d int) string { return fmt.Sprintf("tsrank(close,%d)", d) }},
		{"RSV", func(d int) string {
			return fmt.Sprintf("(close-tsmin(low,%d))/(tsmax(high,%d)-tsmin(low,%d)+1e-12)", d, d, d)
		}},
		{"IMAX", func(d int) string { return fmt.Sprintf("idxmax(high,%d)/%d", d, d) }},
		{"IMIN", func(d int) string { return fmt.Sprintf("idxmin(low,%d)/%d", d, d) }},
		{"IMXD", func(d int) string { return fmt.Sprintf("(idxmax(high,%d)-idxmin(low,%d))/%d", d, d, d) }},
		{"CORR", func(d int) string { return fmt.Sprintf("correlation(close,log(volume+1),%d)", d) }},
		{"CORD", func(d int) string {
			return fmt.Sprintf("correlation(close/shift(close,1),log(volume/shift(volume,1)+1),%d)", d)
		}},
		{"CNTP", func(d int) string { return fmt.Sprintf("mean(close>shift(close,1),%d)", d) }},
		{"CNTN", func(d int) string { return fmt.Sprintf("mean(close<shift(close,1),%d)", d) }},
		{"CNTD", func(d int) string {
			return fmt.Sprintf("mean(close>shift(close,1),%d)-mean(close<shift(close,1),%d)", d, d)
		}},
		{"SUMP", func(d int) string { return fmt.Sprintf("sum(%s,%d)/(sum(%s,%d)+1e-12)", up, d, moved, d) }},
		{"SUMN", func(d int) string { return fmt.Sprintf("sum(%s,%d)/(sum(%s,%d)+1e-12)", down, d, moved, d) }},
		{"SUMD", func(d int) string {
			return fmt.Sprintf("(sum(%s,%d)-sum(%s,%d))/(sum(%s,%d)+1e-12)", up, d, down, d, moved, d)
		}},
		{"VMA", func(d int) string { return fmt.Sprintf("mean(volume,%d)/(volume+1e-12)", d) }},
		{"VSTD", func(d int) string { return fmt.Sprintf("std(volume,%d)/(volume+1e-12)", d) }},
		{"WVMA", func(d int) string { return fmt.Sprintf("std(%s,%d)/(mean(%s,%d)+1e-12)", wvol, d, wvol, d) }},
		{"VSUMP", func(d int) string { return fmt.Sprintf("sum(%s,%d)/(sum(%s,%d)+1e-12)", volUp, d, volMove, d) }},
		{"VSUMN", func(d int) string { return fmt.Sprintf("sum(%s,%d)/(sum(%s,%d)+1e-12)", volDown, d, volMove, d) }},
		{"VSUMD", func(d int) string {
			return fmt.Sprintf("(sum(%s,%d)-sum(%s,%d))/(sum(%s,%d)+1e-12)", volUp, d, volDown, d, volMove, d)
		}},
	}
	for _, r := range rolling {
		for _, d := range rollingWindows {
			add(fmt.Sprintf("%s%d", r.prefix, d), r.formula(d))
		}
	}

	c, err := New(defs...)
	if err != nil {
		panic(err) // generated names are unique
	}
	return c
}

// Alpha360 is the raw 60-day price and volume history, each point divided
// by the latest close (prices) or volume.
func Alpha360() *Catalog {
	var defs []model.FactorDefinition
	for _, field := range []string{"close", "open", "high", "low", "vwap"} {
		for i := 59; i >= 1; i-- {
			defs = append(defs, model.FactorDefinition{Expression: fmt.Sprintf("shift(%s,%d)/close", field, i)})
		}
		defs = append(defs, model.FactorDefinition{Expression: field + "/close"})
	}
	for i := 59; i >= 1; i-- {
		defs = append(defs, model.FactorDefinition{Expression: fmt.Sprintf("shift(volume,%d)/(volume+1e-12)", i)})
	}
	defs = append(defs, model.FactorDefinition{Expression: "volume/(volume+1e-12)"})

	for i := range defs {
		defs[i].Name = fmt.Sprintf("alpha_360_%d", i+1)
	}
	c, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return c
}
