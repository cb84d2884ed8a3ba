package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// two consecutive guards returning the same value can be merged with ||
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// raw fmt.Errorf loses the error class; wrap a sentinel from errs instead
	m.Match(`fmt.Errorf($msg)`).
		Where(m["msg"].Text.Matches(`".*(invalid|missing|malformed).*"`)).
		Report(`input failures should carry the validation sentinel; use errs.Validationf`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}
