// Package markdown renders Markdown email bodies into a plaintext/HTML pair
// suitable for mail clients.
//
// The plaintext part is the Markdown source itself. The HTML part is the
// goldmark rendering wrapped in a minimal document, with any supplied CSS
// inlined into style attributes because most mail clients drop <style>
// blocks. Local images referenced from the Markdown are loaded from an
// image root and returned as inline images; their references are rewritten
// to cid: URLs so that the HTML resolves them from the same message.
//
//	r := markdown.New(markdown.Options{ImageRoot: os.DirFS("templates")})
//	content, err := r.Render("# Hello\n\n![Logo](img/logo.png)", "h1 { color: #333; }")
//	if err != nil {
//		return err
//	}
//	// content.HTML contains <img src="cid:logo.png" ...>
//	// content.InlineImages[0].Filename == "logo.png"
package markdown
