package builder

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// tagPage writes a marker identifying the current page.
func tagPage(t *testing.T, d *Document, id int) {
	t.Helper()
	if err := d.Text(fmt.Sprintf("page-%d", id), 10, 10, TextOptions{}); err != nil {
		t.Fatalf("Text: %v", err)
	}
}

// pageTags returns the marker of every page in document order.
func pageTags(d *Document) []int {
	re := regexp.MustCompile(`\(page-(\d+)\) Tj`)
	var tags []int
	for _, p := range d.pages {
		id := -1
		if m := re.FindStringSubmatch(strings.Join(p.content, "\n")); m != nil {
			fmt.Sscan(m[1], &id)
		}
		tags = append(tags, id)
	}
	return tags
}

func TestDocument_PageSequencesMatchModel(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, 7))
			d := newTestDoc(t)
			tagPage(t, d, 0)
			model := []int{0}
			next, adds, deletes := 1, 1, 0

			for step := 0; step < 60; step++ {
				switch op := rng.IntN(4); {
				case op == 0 || len(model) == 0:
					if _, err := d.AddPage(); err != nil {
						t.Fatal(err)
					}
					tagPage(t, d, next)
					model = append(model, next)
					next++
					adds++
				case op == 1:
					before := rng.IntN(len(model)) + 1
					if _, err := d.InsertPage(before); err != nil {
						t.Fatal(err)
					}
					tagPage(t, d, next)
					model = append(model[:before-1], append([]int{next}, model[before-1:]...)...)
					next++
					adds++
				case op == 2:
					n := rng.IntN(len(model)) + 1
					if err := d.DeletePage(n); err != nil {
						t.Fatalf("DeletePage(%d): %v", n, err)
					}
					model = append(model[:n-1], model[n:]...)
					deletes++
				default:
					target := rng.IntN(len(model)) + 1
					before := rng.IntN(len(model)) + 1
					if err := d.MovePage(target, before); err != nil {
						t.Fatalf("MovePage(%d, %d): %v", target, before, err)
					}
					id := model[target-1]
					model = append(model[:target-1], model[target:]...)
					model = append(model[:before-1], append([]int{id}, model[before-1:]...)...)
				}

				if got, want := d.NumberOfPages(), adds-deletes; got != want {
					t.Fatalf("step %d: NumberOfPages = %d, want %d", step, got, want)
				}
				if diff := cmp.Diff(model, pageTags(d)); diff != "" {
					t.Fatalf("step %d: page order (-want +got):\n%s", step, diff)
				}
			}
		})
	}
}

func TestDocument_DeleteAllPages(t *testing.T) {
	d := newTestDoc(t)
	d.AddPage()
	for d.NumberOfPages() > 0 {
		if err := d.DeletePage(1); err != nil {
			t.Fatalf("DeletePage: %v", err)
		}
	}
	if d.CurrentPage() != 0 {
		t.Errorf("CurrentPage on an empty document = %d", d.CurrentPage())
	}

	out := output(t, d)
	for _, want := range []string{"/Kids []", "/Count 0"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("empty document output missing %q", want)
		}
	}
	if bytes.Contains(out, []byte("/OpenAction")) {
		t.Errorf("empty document has an /OpenAction")
	}
	checkXRef(t, out)

	tagPage(t, d, 1)
	if d.NumberOfPages() != 1 || d.CurrentPage() != 1 {
		t.Fatalf("drawing on an empty document: pages=%d current=%d", d.NumberOfPages(), d.CurrentPage())
	}
	if diff := cmp.Diff([]int{1}, pageTags(d)); diff != "" {
		t.Errorf("page tags (-want +got):\n%s", diff)
	}
}
