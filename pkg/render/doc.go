// Package render turns vdom trees into markup.
//
// The default output is wire markup: the payload format of every patch that
// mounts nodes (AddRoot, AddChild, ReplaceChild, SetChildrenHtml, AddText,
// AddRaw and the head patches). Wire markup is HTML plus enough identity for
// a host to address every node afterwards:
//
//	<ul data-vid="h1" class="list">
//	  <li data-vid="h2"><!--t:h3-->first<!--/t--></li>
//	  <!--r:h4--><b>trusted</b><!--/r-->
//	  <!--e:h5-->
//	</ul>
//
// Elements carry their id in a data-vid attribute. Text and raw nodes are
// wrapped in comment markers that carry the id, and an Empty node is a lone
// marker. Handler attributes render as data-vh-<name> holding the binding
// payload; the callback itself never leaves the server.
//
// Attributes are written sorted by name and tag and attribute names are
// lower-cased, so two structurally equal trees always produce identical
// markup. That property is what the reference host relies on to check that a
// patched document equals a fresh rendering.
//
// # Plain Output
//
// RendererConfig.Plain produces ordinary HTML without ids or markers:
//
//	r := render.NewRenderer(render.RendererConfig{Plain: true})
//	html, err := r.RenderToString(node)
//
// # Security
//
// Text content and attribute values are escaped. Raw nodes are written as is
// and must only carry trusted content.
package render
