// Package pages holds the in-memory launcher model: an ordered list of
// pages, each an ordered list of buttons.
//
// A Collection is not safe for concurrent mutation. The application routes
// every call through its single UI loop.
package pages

import (
	"slices"
	"strings"
)

// DefaultPageName names the page created when no usable configuration exists.
const DefaultPageName = "Default"

// Button maps a label to the opaque command text it injects.
type Button struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// Page is a named, ordered group of buttons.
type Page struct {
	Name    string   `json:"page_name"`
	Buttons []Button `json:"buttons"`
}

// ChangeFunc receives a deep copy of the collection after each successful
// mutation. It must not block; persistence is fire-and-forget.
type ChangeFunc func(snapshot []Page)

// Collection is the ordered list of pages. At least one page always exists
// and page names are unique.
type Collection struct {
	pages    []Page
	onChange ChangeFunc
}

// DefaultPages returns the single empty default page.
func DefaultPages() []Page {
	return []Page{{Name: DefaultPageName, Buttons: []Button{}}}
}

// New builds a collection from loaded pages. An empty input yields the
// default page; later duplicates of a page name are dropped.
func New(initial []Page) *Collection {
	c := &Collection{}
	seen := make(map[string]struct{}, len(initial))
	for _, p := range initial {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		c.pages = append(c.pages, Page{Name: name, Buttons: cloneButtons(p.Buttons)})
	}
	if len(c.pages) == 0 {
		c.pages = DefaultPages()
	}
	return c
}

// SetOnChange installs the persistence hook. nil disables it.
func (c *Collection) SetOnChange(fn ChangeFunc) {
	c.onChange = fn
}

// Len returns the number of pages.
func (c *Collection) Len() int { return len(c.pages) }

// Pages returns a deep copy of all pages.
func (c *Collection) Pages() []Page {
	return clonePages(c.pages)
}

// Page returns a deep copy of the page at index.
func (c *Collection) Page(index int) (Page, error) {
	if err := c.checkPage(index); err != nil {
		return Page{}, err
	}
	p := c.pages[index]
	return Page{Name: p.Name, Buttons: cloneButtons(p.Buttons)}, nil
}

// Button resolves a button by position, re-validating both indices.
func (c *Collection) Button(pageIndex, buttonIndex int) (Button, error) {
	if err := c.checkButton(pageIndex, buttonIndex); err != nil {
		return Button{}, err
	}
	return c.pages[pageIndex].Buttons[buttonIndex], nil
}

// ButtonCount returns the number of buttons on a page.
func (c *Collection) ButtonCount(pageIndex int) (int, error) {
	if err := c.checkPage(pageIndex); err != nil {
		return 0, err
	}
	return len(c.pages[pageIndex].Buttons), nil
}

// Replace swaps in a new page list wholesale, e.g. after the button file was
// edited outside the application. The same normalization as New applies.
func (c *Collection) Replace(next []Page) {
	c.pages = New(next).pages
	c.changed()
}

// AddPage appends an empty page.
func (c *Collection) AddPage(name string) error {
	name, err := c.validatePageName(name, -1)
	if err != nil {
		return err
	}
	c.pages = append(c.pages, Page{Name: name, Buttons: []Button{}})
	c.changed()
	return nil
}

// DeletePage removes a page and all of its buttons.
func (c *Collection) DeletePage(index int) error {
	if err := c.checkPage(index); err != nil {
		return err
	}
	if len(c.pages) == 1 {
		return &LastPageError{}
	}
	c.pages = slices.Delete(c.pages, index, index+1)
	c.changed()
	return nil
}

// RenamePage renames the page at index. Renaming a page to its current name
// succeeds without a change notification.
func (c *Collection) RenamePage(index int, newName string) error {
	if err := c.checkPage(index); err != nil {
		return err
	}
	name, err := c.validatePageName(newName, index)
	if err != nil {
		return err
	}
	if c.pages[index].Name == name {
		return nil
	}
	c.pages[index].Name = name
	c.changed()
	return nil
}

// AddButton appends a button to a page.
func (c *Collection) AddButton(pageIndex int, name, command string) error {
	if err := c.checkPage(pageIndex); err != nil {
		return err
	}
	btn, err := newButton(name, command)
	if err != nil {
		return err
	}
	c.pages[pageIndex].Buttons = append(c.pages[pageIndex].Buttons, btn)
	c.changed()
	return nil
}

// EditButton replaces a button in place.
func (c *Collection) EditButton(pageIndex, buttonIndex int, name, command string) error {
	if err := c.checkButton(pageIndex, buttonIndex); err != nil {
		return err
	}
	btn, err := newButton(name, command)
	if err != nil {
		return err
	}
	c.pages[pageIndex].Buttons[buttonIndex] = btn
	c.changed()
	return nil
}

// DeleteButton removes a button, preserving the order of the rest.
func (c *Collection) DeleteButton(pageIndex, buttonIndex int) error {
	if err := c.checkButton(pageIndex, buttonIndex); err != nil {
		return err
	}
	c.pages[pageIndex].Buttons = slices.Delete(c.pages[pageIndex].Buttons, buttonIndex, buttonIndex+1)
	c.changed()
	return nil
}

// SwapButtons exchanges the positions of two buttons on a page. i == j is a
// no-op and does not notify.
func (c *Collection) SwapButtons(pageIndex, i, j int) error {
	if err := c.checkButton(pageIndex, i); err != nil {
		return err
	}
	if err := c.checkButton(pageIndex, j); err != nil {
		return err
	}
	if i == j {
		return nil
	}
	buttons := c.pages[pageIndex].Buttons
	buttons[i], buttons[j] = buttons[j], buttons[i]
	c.changed()
	return nil
}

func (c *Collection) validatePageName(raw string, selfIndex int) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", &EmptyNameError{}
	}
	for i, p := range c.pages {
		if i != selfIndex && p.Name == name {
			return "", &DuplicateNameError{Name: name}
		}
	}
	return name, nil
}

func (c *Collection) checkPage(index int) error {
	if index < 0 || index >= len(c.pages) {
		return &IndexOutOfRangeError{Kind: "page", Index: index, Len: len(c.pages)}
	}
	return nil
}

func (c *Collection) checkButton(pageIndex, buttonIndex int) error {
	if err := c.checkPage(pageIndex); err != nil {
		return err
	}
	n := len(c.pages[pageIndex].Buttons)
	if buttonIndex < 0 || buttonIndex >= n {
		return &IndexOutOfRangeError{Kind: "button", Index: buttonIndex, Len: n}
	}
	return nil
}

func (c *Collection) changed() {
	if c.onChange != nil {
		c.onChange(clonePages(c.pages))
	}
}

func newButton(name, command string) (Button, error) {
	name = strings.TrimSpace(name)
	command = strings.TrimSpace(command)
	if name == "" {
		return Button{}, &EmptyFieldError{Field: "name"}
	}
	if command == "" {
		return Button{}, &EmptyFieldError{Field: "command"}
	}
	return Button{Name: name, Command: command}, nil
}

func clonePages(src []Page) []Page {
	dst := make([]Page, len(src))
	for i, p := range src {
		dst[i] = Page{Name: p.Name, Buttons: cloneButtons(p.Buttons)}
	}
	return dst
}

func cloneButtons(src []Button) []Button {
	dst := make([]Button, len(src))
	copy(dst, src)
	return dst
}
