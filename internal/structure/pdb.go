package structure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Atom is one coordinate record from a PDB file.
type Atom struct {
	Hetero    bool
	Serial    int
	Name      string
	AltLoc    byte
	ResName   string
	ChainID   byte
	ResSeq    int
	ICode     byte
	Position  Point3
	Occupancy float64
	Element   string
	Model     int
}

// site identifies one atom across its alternate locations.
type site struct {
	model   int
	hetero  bool
	chain   byte
	resSeq  int
	iCode   byte
	resName string
	name    string
}

type ParseError struct {
	Line   int
	Record string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("pdb: %v", e.Err)
	}
	return fmt.Sprintf("pdb line %d (%s): %v", e.Line, e.Record, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errShortRecord = errors.New("record too short for coordinates")

// ReadAtoms parses every ATOM and HETATM record of r in file order, across
// all models. An atom recorded at several alternate locations is kept once,
// at the position of its first record, using the conformer with the highest
// occupancy. Ties go to the earlier record.
func ReadAtoms(r io.Reader) ([]Atom, error) {
	var (
		atoms     []Atom
		model     = 1
		disorders = make(map[site]int)
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		record := strings.TrimSpace(field(line, 1, 6))

		switch record {
		case "MODEL":
			if n, err := strconv.Atoi(strings.TrimSpace(field(line, 11, 14))); err == nil {
				model = n
			}
		case "ATOM", "HETATM":
			atom, err := parseAtom(line, record == "HETATM")
			if err != nil {
				return nil, &ParseError{Line: lineNo, Record: record, Err: err}
			}
			atom.Model = model
			if atom.AltLoc == ' ' {
				atoms = append(atoms, atom)
				continue
			}
			key := site{model, atom.Hetero, atom.ChainID, atom.ResSeq, atom.ICode, atom.ResName, atom.Name}
			if i, seen := disorders[key]; seen {
				if atom.Occupancy > atoms[i].Occupancy {
					atoms[i] = atom
				}
				continue
			}
			disorders[key] = len(atoms)
			atoms = append(atoms, atom)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}
	return atoms, nil
}

// ParseLigandAtoms returns the coordinates of every heteroatom record.
// Waters and ions count as heteroatoms.
func ParseLigandAtoms(r io.Reader) ([]Point3, error) {
	atoms, err := ReadAtoms(r)
	if err != nil {
		return nil, err
	}
	points := make([]Point3, 0, len(atoms))
	for _, a := range atoms {
		if a.Hetero {
			points = append(points, a.Position)
		}
	}
	return points, nil
}

func ExtractLigandAtoms(path string) ([]Point3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()
	return ParseLigandAtoms(f)
}

func parseAtom(line string, hetero bool) (Atom, error) {
	if len(line) < 54 {
		return Atom{}, errShortRecord
	}

	x, err := coordinate(line, 31, 38, "x")
	if err != nil {
		return Atom{}, err
	}
	y, err := coordinate(line, 39, 46, "y")
	if err != nil {
		return Atom{}, err
	}
	z, err := coordinate(line, 47, 54, "z")
	if err != nil {
		return Atom{}, err
	}

	atom := Atom{
		Hetero:   hetero,
		Name:     strings.TrimSpace(field(line, 13, 16)),
		AltLoc:   column(line, 17),
		ResName:  strings.TrimSpace(field(line, 18, 20)),
		ChainID:  column(line, 22),
		ICode:    column(line, 27),
		Position: Point3{X: x, Y: y, Z: z},
		Element:  strings.TrimSpace(field(line, 77, 78)),
	}
	// Occupancy is optional in hand-written files; missing reads as full.
	atom.Occupancy = 1
	if raw := strings.TrimSpace(field(line, 55, 60)); raw != "" {
		if occ, err := strconv.ParseFloat(raw, 64); err == nil {
			atom.Occupancy = occ
		}
	}
	// Hybrid-36 serials and residue numbers are left as zero.
	atom.Serial, _ = strconv.Atoi(strings.TrimSpace(field(line, 7, 11)))
	atom.ResSeq, _ = strconv.Atoi(strings.TrimSpace(field(line, 23, 26)))
	return atom, nil
}

func coordinate(line string, start, end int, axis string) (float64, error) {
	raw := strings.TrimSpace(field(line, start, end))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s coordinate %q", axis, raw)
	}
	return v, nil
}

// field returns the 1-based inclusive column range [start, end] of line,
// clipped to its length.
func field(line string, start, end int) string {
	if start > len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start-1 : end]
}

func column(line string, pos int) byte {
	if pos > len(line) {
		return ' '
	}
	return line[pos-1]
}
