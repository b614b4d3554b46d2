package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"school_admin/internal/app"
	idb "school_admin/internal/infra/database"
	"school_admin/internal/infra/export"
	"school_admin/internal/infra/spreadsheet"
)

var (
	migrateFunc = idb.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	importer   *app.ImportService
	rosterSvc  *app.RosterService
	dispatcher *app.NotificationService
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo, reset, up-to N, down-to N)")
	fmt.Fprintln(cli.out, "  import -file FILE.xlsx - import students and parents from a spreadsheet")
	fmt.Fprintln(cli.out, "  export -class ID [-format xlsx|pdf] -out FILE - export a class roster")
	fmt.Fprintln(cli.out, "  template -out FILE.xlsx - write a blank import workbook")
	fmt.Fprintln(cli.out, "  retry - run the delivery retry sweep once")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The .xlsx file to import.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportClass := exportCmd.Int64("class", 0, "The class id.")
	exportFormat := exportCmd.String("format", "xlsx", "The output format: xlsx or pdf.")
	exportOut := exportCmd.String("out", "", "The output file.")

	templateCmd := flag.NewFlagSet("template", flag.ContinueOnError)
	templateOut := templateCmd.String("out", "", "The output file.")

	for _, fs := range []*flag.FlagSet{importCmd, exportCmd, templateCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return migrateFunc(cli.db, args[2], args[3:]...)
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importFile(ctx, *importFile)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportClass <= 0 || *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(ctx, *exportClass, *exportFormat, *exportOut)
	case "template":
		if err := templateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *templateOut == "" {
			templateCmd.Usage()
			return errHelp
		}
		return cli.template(ctx, *templateOut)
	case "retry":
		sent, err := cli.dispatcher.RetryPending(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Retry sweep done: %d message(s) sent.\n", sent)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) importFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := spreadsheet.ReadImportRows(f)
	if err != nil {
		return err
	}
	report, err := cli.importer.Import(ctx, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Imported %d student(s), %d duplicate(s), %d skipped row(s). Created %d class(es) and %d parent(s).\n",
		report.Imported, report.Duplicates, report.Skipped, report.Classes, report.Parents)
	return nil
}

func (cli *commandLine) export(ctx context.Context, classID int64, format, path string) error {
	var exporter app.RowExporter
	switch strings.ToLower(format) {
	case "xlsx":
		exporter = spreadsheet.XLSXExporter{}
	case "pdf":
		exporter = export.NewPDFExporter()
	default:
		return fmt.Errorf("unknown export format %q (want xlsx or pdf)", format)
	}

	data, err := cli.rosterSvc.Export(ctx, classID, exporter)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Class %d written to %s.\n", classID, path)
	return nil
}

func (cli *commandLine) template(ctx context.Context, path string) error {
	classes, err := cli.rosterSvc.ListClasses(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, c.Name)
	}
	data, err := spreadsheet.Template(names)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Import template written to %s.\n", path)
	return nil
}
