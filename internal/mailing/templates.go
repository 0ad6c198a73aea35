package mailing

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/openfoundry/outreach/internal/domain"
)

// Message is a fully rendered outgoing email.
type Message struct {
	Subject  string
	Body     string
	Template string // template name, recorded in the outreach log
}

type messageTemplate struct {
	name    string
	subject string
	body    string
}

// One template per target category. Bindings: greeting, name,
// organization, sender, opt_out_link.
var categoryTemplates = map[domain.Category]messageTemplate{
	domain.CategoryPublication: {
		name:    "publication_pitch",
		subject: "Story idea for {{ organization }}",
		body: `{{ greeting }},

I follow {{ organization }} and thought this might be a fit for your readers:
we are building an open-source developer platform and recently shipped a few
things your audience has been asking about.

Happy to share a short brief or a demo if that is useful.

Best,
{{ sender }}`,
	},
	domain.CategoryCommunity: {
		name:    "community_intro",
		subject: "Introducing ourselves to the {{ organization }} community",
		body: `{{ greeting }},

We are long-time readers of {{ organization }} and wanted to introduce our
open-source project to the community. We would love feedback from members,
and we are glad to answer questions or run an AMA if there is interest.

Best,
{{ sender }}`,
	},
	domain.CategoryPlatform: {
		name:    "platform_listing",
		subject: "Listing request for {{ organization }}",
		body: `{{ greeting }},

We would like to get our project listed on {{ organization }}. It is open
source, actively maintained, and already used in production. I can provide
any materials you need for the listing.

Thanks,
{{ sender }}`,
	},
	domain.CategoryInfluencer: {
		name:    "influencer_outreach",
		subject: "Something you might want to cover",
		body: `{{ greeting }},

I enjoy your coverage of developer tools. We just released a project I think
fits your audience well, and I would be glad to give you early access or a
walkthrough, no strings attached.

Best,
{{ sender }}`,
	},
}

// Engine renders per-category outreach messages with Liquid.
type Engine struct {
	engine    *liquid.Engine
	sender    string
	optOutURL string
}

func NewEngine(sender, optOutURL string) *Engine {
	engine := liquid.NewEngine()

	// {{ name | default: "there" }}, where empty strings count as missing.
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Engine{
		engine:    engine,
		sender:    sender,
		optOutURL: optOutURL,
	}
}

// Render produces the message for one contact. Contacts whose category
// has no template are an error, the caller decides whether to skip.
func (e *Engine) Render(c domain.Contact) (Message, error) {
	tpl, ok := categoryTemplates[c.Category]
	if !ok {
		return Message{}, fmt.Errorf("no template for category %q", c.Category)
	}

	bindings := map[string]interface{}{
		"greeting":     greetingFor(c),
		"name":         c.Name,
		"email":        c.Email,
		"organization": c.Organization,
		"sender":       e.sender,
	}

	subject, err := e.engine.ParseAndRenderString(tpl.subject, bindings)
	if err != nil {
		return Message{}, fmt.Errorf("render subject %q: %w", tpl.name, err)
	}
	body, err := e.engine.ParseAndRenderString(tpl.body, bindings)
	if err != nil {
		return Message{}, fmt.Errorf("render body %q: %w", tpl.name, err)
	}

	if e.optOutURL != "" {
		body += fmt.Sprintf(
			"\n\n--\nIf you prefer not to hear from us again, opt out here: %s?email=%s",
			e.optOutURL, c.Email)
	}

	return Message{
		Subject:  strings.TrimSpace(subject),
		Body:     body,
		Template: tpl.name,
	}, nil
}

// greetingFor personalizes when a real name is known and falls back to
// a neutral greeting for shared inboxes (press@, hello@, ...).
func greetingFor(c domain.Contact) string {
	name := strings.TrimSpace(c.Name)
	if name != "" {
		// First name only.
		if i := strings.IndexByte(name, ' '); i > 0 {
			name = name[:i]
		}
		return "Hi " + name
	}
	return "Hello team"
}
