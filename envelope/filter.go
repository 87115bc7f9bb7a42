package envelope

// Filter is a stateless predicate over an Envelope, safe to share across
// goroutines. Filters gate dispatch and compose with And, Or and Not.
type Filter func(Envelope) bool

// And returns a filter that passes only when every given filter passes.
// With no arguments it passes everything.
func And(filters ...Filter) Filter {
	return func(env Envelope) bool {
		for _, f := range filters {
			if !f(env) {
				return false
			}
		}
		return true
	}
}

// Or returns a filter that passes when any given filter passes.
// With no arguments it rejects everything.
func Or(filters ...Filter) Filter {
	return func(env Envelope) bool {
		for _, f := range filters {
			if f(env) {
				return true
			}
		}
		return false
	}
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return func(env Envelope) bool {
		return !f(env)
	}
}

// MatchTopic passes envelopes with exactly the given topic. "*" and ""
// match any topic.
func MatchTopic(topic string) Filter {
	return func(env Envelope) bool {
		return MatchPattern(topic, env.Topic)
	}
}

// MatchType passes envelopes with exactly the given type. "*" and ""
// match any type.
func MatchType(eventType string) Filter {
	return func(env Envelope) bool {
		return MatchPattern(eventType, env.Type)
	}
}

// MatchPattern implements the routing pattern contract: "*" or empty
// matches anything, otherwise exact string match.
func MatchPattern(pattern, value string) bool {
	return pattern == "" || pattern == "*" || pattern == value
}
