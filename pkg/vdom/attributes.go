package vdom

import "strings"

// keyAttrName is the pseudo-attribute the builders turn into Node.Key.
const keyAttrName = "key"

// attr creates an Attr with the given name and value.
func attr(name, value string) Attr {
	return Attr{Name: name, Value: value}
}

// A creates an arbitrary attribute.
func A(name, value string) Attr { return attr(name, value) }

// Key sets the list-identity key of the element being built.
func Key(key string) Attr { return attr(keyAttrName, key) }

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// StyleAttr sets the style attribute.
func StyleAttr(style string) Attr { return attr("style", style) }

// Href sets the href attribute.
func Href(url string) Attr { return attr("href", url) }

// Value sets the value attribute.
func Value(v string) Attr { return attr("value", v) }

// Type sets the type attribute.
func Type(t string) Attr { return attr("type", t) }

// Name sets the name attribute.
func Name(n string) Attr { return attr("name", n) }

// Content sets the content attribute.
func Content(c string) Attr { return attr("content", c) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Disabled sets the disabled boolean attribute. A false value yields an empty
// Attr, which the builders skip.
func Disabled(disabled bool) Attr {
	if !disabled {
		return Attr{}
	}
	return attr("disabled", "")
}

// On binds an event to a correlation token. The attribute name is "on" + event.
func On(event, correlation string) Attr {
	return Attr{
		Name:    "on" + event,
		Handler: &Handler{Event: event, Correlation: correlation},
	}
}

// OnMessage binds an event that carries a static message.
func OnMessage(event, correlation, message string) Attr {
	a := On(event, correlation)
	a.Handler.Message = message
	return a
}
