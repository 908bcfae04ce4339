package inspector

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// ParsePageSource parses an Android UI hierarchy XML dump into a flat
// element list in document order. Container nodes are records too; the
// callers filter by interactivity.
func ParsePageSource(xmlData string) ([]core.ElementRecord, error) {
	decoder := xml.NewDecoder(strings.NewReader(xmlData))

	var elements []core.ElementRecord
	foundHierarchy := false

	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if len(elements) == 0 {
				return nil, err
			}
			break
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local == "hierarchy" {
			foundHierarchy = true
			continue
		}

		elem := core.ElementRecord{Class: start.Name.Local}
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "class":
				elem.Class = attr.Value
			case "text":
				elem.Text = attr.Value
			case "resource-id":
				elem.ResourceID = attr.Value
			case "content-desc":
				elem.ContentDesc = attr.Value
			case "clickable":
				elem.Clickable = attr.Value == "true"
			case "enabled":
				elem.Enabled = attr.Value == "true"
			case "bounds":
				elem.Bounds = core.ParseBounds(attr.Value)
			default:
				if elem.Attributes == nil {
					elem.Attributes = map[string]string{}
				}
				elem.Attributes[attr.Name.Local] = attr.Value
			}
		}
		elem.InferredType = Classify(elem.Class)
		elements = append(elements, elem)
	}

	if !foundHierarchy {
		return nil, core.ErrNoPageSource.WithMessage("no hierarchy element in page source")
	}
	return elements, nil
}
