package shader

// Directive is a macro group that stands for a settings-dependent set of
// shader files contributed by one subsystem.
type Directive int

const (
	DirectiveNone Directive = iota
	ShadowBasic
	ShadowLite
	ShadowVariance
	DynamicLighting
	ShadowMapGen
)

var directiveNames = map[Directive]string{
	ShadowBasic:     "shadow-basic",
	ShadowLite:      "shadow-lite",
	ShadowVariance:  "shadow-variance",
	DynamicLighting: "dynamic-lighting",
	ShadowMapGen:    "shadow-map",
}

var directivesByName = func() map[string]Directive {
	m := make(map[string]Directive, len(directiveNames))
	for d, name := range directiveNames {
		m[name] = d
	}
	return m
}()

func (d Directive) String() string {
	if name, ok := directiveNames[d]; ok {
		return name
	}
	return "none"
}

// ParseDirective maps a directive name, without the surrounding asterisks,
// to its Directive.
func ParseDirective(name string) (Directive, error) {
	if d, ok := directivesByName[name]; ok {
		return d, nil
	}
	return DirectiveNone, &UnknownDirectiveError{Directive: name}
}

func pick(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

func shadowGroup(variant string) func(Settings) []string {
	return func(s Settings) []string {
		return []string{
			"shadow/common.fs",
			variant,
			pick(s.ShadowMaps, "shadow/map.fs", "shadow/map_null.fs"),
			pick(s.RadiosityLevel() >= 1, "shadow/radiosity.fs", "shadow/radiosity_null.fs"),
			pick(s.SSAO, "shadow/ssao.fs", "shadow/ssao_null.fs"),
		}
	}
}

var expansions = map[Directive]func(Settings) []string{
	ShadowBasic:    shadowGroup("shadow/basic.fs"),
	ShadowLite:     shadowGroup("shadow/lite.fs"),
	ShadowVariance: shadowGroup("shadow/variance.fs"),
	DynamicLighting: func(s Settings) []string {
		return []string{
			"lighting/dynamic.vs",
			"lighting/dynamic.fs",
			pick(s.ShadowMaps, "lighting/dynamic_shadow.fs", "lighting/dynamic_shadow_null.fs"),
		}
	},
	ShadowMapGen: func(s Settings) []string {
		if s.ShadowMaps {
			return []string{"shadow/map_gen.vs", "shadow/map_gen.fs"}
		}
		return []string{"shadow/map_gen_null.vs"}
	},
}

// Expand returns the ordered shader files d stands for under s.
func (d Directive) Expand(s Settings) []string {
	if f, ok := expansions[d]; ok {
		return f(s)
	}
	return nil
}
