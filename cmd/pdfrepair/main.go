package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	pdf "github.com/Geek0x0/pdfrepair"
)

func main() {
	check := flag.Bool("check", false, "Only run the integrity triage, do not repair")
	password := flag.String("password", "", "Password for encrypted files")
	report := flag.Bool("report", false, "Report success as a 'file was repaired' condition")
	firstPage := flag.Bool("firstpage", false, "Capture the first page dictionary during the scan")
	verbose := flag.Bool("v", false, "Print warnings to stderr while repairing")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pdfrepair [options] file.pdf...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	pdf.DebugOn = *verbose

	status := 0
	for _, path := range flag.Args() {
		if err := run(path, *check, *password, *report, *firstPage); err != nil {
			log.Printf("%s: %v", path, err)
			status = 1
		}
	}
	os.Exit(status)
}

func run(path string, checkOnly bool, password string, report, firstPage bool) error {
	if checkOnly {
		return runCheck(path)
	}

	doc, err := pdf.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	err = doc.Repair(pdf.RepairOptions{
		ReportRepair:     report,
		CaptureFirstPage: firstPage,
	})
	if err != nil {
		var re *pdf.RepairError
		if errors.As(err, &re) && re.Kind == pdf.KindRepaired {
			fmt.Printf("%s: %v\n", path, err)
		} else {
			return err
		}
	}

	if err := doc.SetPassword(password); err != nil {
		return err
	}

	trailer := doc.Trailer()
	fmt.Printf("%s: %d object slots, root %v\n", path, doc.Size(), trailer.Key("Root"))
	if info := trailer.Key("Info"); !info.IsNull() {
		if t := info.Key("Title"); t.Kind() == pdf.String {
			fmt.Printf("  title: %s\n", t.Text())
		}
		if p := info.Key("Producer"); p.Kind() == pdf.String {
			fmt.Printf("  producer: %s\n", p.Text())
		}
	}
	if firstPage {
		if pg := doc.FirstPage(); !pg.IsNull() {
			fmt.Printf("  first page: %v\n", pg)
		}
	}
	for _, w := range doc.Warnings() {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}

func runCheck(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	status := pdf.CheckIntegrity(f, fi.Size())
	fmt.Printf("%s: banner=%v eof=%v startxref=%v xref=%v ~%d objects\n",
		path, status.HasBanner, status.HasEOFMarker, status.HasStartxref, status.HasXref,
		status.EstimatedObjects)
	for _, issue := range status.Issues {
		fmt.Printf("  issue: %s\n", issue)
	}
	if status.NeedsRepair() {
		fmt.Printf("  verdict: needs repair\n")
	} else {
		fmt.Printf("  verdict: looks loadable\n")
	}
	return nil
}
