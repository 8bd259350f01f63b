package session

import (
	"fmt"

	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/protocol/schema"
)

type extension struct {
	present     bool
	majorOpcode uint8
	firstEvent  uint8
	firstError  uint8
}

// MajorOpcode returns the request opcode the server assigned to the named
// extension. Answers, including absent extensions, are cached for the life
// of the connection.
func (c *Conn) MajorOpcode(name string) (uint8, error) {
	ext, ok := c.extensions[name]
	if !ok {
		rec, err := c.SendSync(schema.QueryExtension.Build("name", name), schema.QueryExtensionReply)
		if err != nil {
			return 0, err
		}
		ext = extension{
			present:     rec.Bool("present"),
			majorOpcode: uint8(rec.Uint("major_opcode")),
			firstEvent:  uint8(rec.Uint("first_event")),
			firstError:  uint8(rec.Uint("first_error")),
		}
		c.extensions[name] = ext
		logs.Debugf("session.MajorOpcode extension=%s present=%t major=%d", name, ext.present, ext.majorOpcode)
	}
	if !ext.present {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchExtension, name)
	}
	return ext.majorOpcode, nil
}

// InternAtom returns the atom for name. With onlyIfExists a missing atom is
// reported as 0 (None) and is not cached.
func (c *Conn) InternAtom(name string, onlyIfExists bool) (uint32, error) {
	if atom, ok := c.atoms[name]; ok {
		return atom, nil
	}
	rec, err := c.SendSync(
		schema.InternAtom.Build("only_if_exists", onlyIfExists, "name", name),
		schema.InternAtomReply,
	)
	if err != nil {
		return 0, err
	}
	atom := rec.Uint("atom")
	if atom != 0 {
		c.atoms[name] = atom
		c.atomNames[atom] = name
	}
	return atom, nil
}

// AtomName resolves an atom back to its name.
func (c *Conn) AtomName(atom uint32) (string, error) {
	if name, ok := c.atomNames[atom]; ok {
		return name, nil
	}
	rec, err := c.SendSync(schema.GetAtomName.Build("atom", atom), schema.GetAtomNameReply)
	if err != nil {
		return "", err
	}
	name := rec.Text("name")
	c.atomNames[atom] = name
	c.atoms[name] = atom
	return name, nil
}
