package converter

import "fmt"

// OverrideWarning marks generated files as build output.
const OverrideWarning = `WARNING! THIS FILE IS AUTO-GENERATED by mdmail convert. Changes to this file WILL be overwritten. In the same directory, there should be a file with the same name, except an ".md" ending (for Markdown). Edit that instead and run mdmail convert again.`

// CommentSyntax selects the template language the banner is written in.
type CommentSyntax string

const (
	// SyntaxGo wraps the banner for html/template and text/template.
	SyntaxGo CommentSyntax = "go"
	// SyntaxDjango wraps the banner in a Django comment block.
	SyntaxDjango CommentSyntax = "django"
	// SyntaxJinja wraps the banner for Jinja2 and Pongo2 style engines.
	SyntaxJinja CommentSyntax = "jinja"
)

// Banner returns the override warning as a single comment line in the given
// syntax, without a trailing newline. An empty syntax selects SyntaxGo.
func Banner(syntax CommentSyntax) (string, error) {
	switch syntax {
	case SyntaxGo, "":
		return "{{/* " + OverrideWarning + " */}}", nil
	case SyntaxDjango:
		return "{% comment %}" + OverrideWarning + "{% endcomment %}", nil
	case SyntaxJinja:
		return "{# " + OverrideWarning + " #}", nil
	default:
		return "", fmt.Errorf("unknown comment syntax %q", syntax)
	}
}
