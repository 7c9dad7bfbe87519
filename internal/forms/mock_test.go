// File: internal/forms/mock_test.go
package forms

import (
	"context"
	"time"

	"github.com/ckarabey/attendbot/internal/browser"
)

// fakeElement is an in-memory DOM node for plugin tests.
type fakeElement struct {
	attrs    map[string]string
	text     string
	children map[string][]*fakeElement
}

func (e *fakeElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) QueryOne(ctx context.Context, selector string) (browser.Element, error) {
	kids := e.children[selector]
	if len(kids) == 0 {
		return nil, nil
	}
	return kids[0], nil
}

func (e *fakeElement) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	var out []browser.Element
	for _, k := range e.children[selector] {
		out = append(out, k)
	}
	return out, nil
}

// fakePage is an in-memory Page. It records interactions so tests can assert
// what was typed, checked and clicked.
type fakePage struct {
	elements map[string][]*fakeElement
	bodyText string

	waitErr error
	navErr  error

	navigated   []string
	typed       map[string]string
	checked     []string
	clicked     []string
	screenshots []string
}

func newFakePage() *fakePage {
	return &fakePage{
		elements: make(map[string][]*fakeElement),
		typed:    make(map[string]string),
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return p.waitErr
}

func (p *fakePage) QueryOne(ctx context.Context, selector string) (browser.Element, error) {
	els := p.elements[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (p *fakePage) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	var out []browser.Element
	for _, e := range p.elements[selector] {
		out = append(out, e)
	}
	return out, nil
}

func (p *fakePage) InnerText(ctx context.Context, selector string) (string, error) {
	if selector == "body" {
		return p.bodyText, nil
	}
	if els := p.elements[selector]; len(els) > 0 {
		return els[0].text, nil
	}
	return "", nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) Type(ctx context.Context, selector, text string) error {
	p.typed[selector] = text
	return nil
}

func (p *fakePage) Check(ctx context.Context, selector string) error {
	p.checked = append(p.checked, selector)
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	p.screenshots = append(p.screenshots, path)
	return nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	return "<html>" + p.bodyText + "</html>", nil
}

func (p *fakePage) Close(ctx context.Context) error { return nil }

// question builds a Microsoft Forms question block: a title plus an input
// control carried under the given child selector.
func question(title string, inputSelector string, inputAttrs map[string]string) *fakeElement {
	q := &fakeElement{
		attrs:    map[string]string{"data-automation-id": "questionItem"},
		children: make(map[string][]*fakeElement),
	}
	q.children[msTitleSelector] = []*fakeElement{{text: title}}
	if inputSelector != "" {
		q.children[inputSelector] = []*fakeElement{{attrs: inputAttrs}}
	}
	return q
}

// attendanceFormPage assembles a three-question Turkish attendance form with a
// marked submit button.
func attendanceFormPage() *fakePage {
	page := newFakePage()
	page.elements[msQuestionSelector] = []*fakeElement{
		question("Ad Soyad", msTextInputSelector,
			map[string]string{"data-automation-id": "textInput-name"}),
		question("Öğrenci No", msTextInputSelector,
			map[string]string{"id": "student-no"}),
		question("Katılım Onayı", msCheckboxSelector,
			map[string]string{"name": "attend"}),
	}
	page.elements[msSubmitSelector] = []*fakeElement{
		{attrs: map[string]string{"data-automation-id": "submitButton"}, text: "Gönder"},
	}
	return page
}
