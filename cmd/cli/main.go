package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/config"
	"github.com/yourorg/catalogconsole/internal/console"
	"github.com/yourorg/catalogconsole/internal/session"
	"github.com/yourorg/catalogconsole/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	store := session.NewFileStore(cfg.SessionFile)
	var opts []apiclient.Option
	if cfg.HTTPTimeout > 0 {
		opts = append(opts, apiclient.WithTimeout(cfg.HTTPTimeout))
	}
	client := apiclient.New(cfg.APIBaseURL, session.NewProvider(store), opts...)

	t := &terminal{
		in:    bufio.NewReader(os.Stdin),
		out:   os.Stdout,
		saver: apiclient.DirSaver{Dir: cfg.DownloadDir},
	}
	t.ctrl = console.New(client, store, console.WithNotifier(spinner{out: os.Stdout}))

	ctx := context.Background()
	t.ctrl.Bootstrap(ctx)
	t.run(ctx)
}

type terminal struct {
	in    *bufio.Reader
	out   io.Writer
	ctrl  *console.Controller
	saver apiclient.FileSaver
}

func (t *terminal) run(ctx context.Context) {
	for {
		printView(t.out, t.ctrl.View())
		var quit bool
		if t.ctrl.Snapshot().Authenticated {
			quit = t.shellMenu(ctx)
		} else {
			quit = t.authMenu(ctx)
		}
		if quit {
			fmt.Fprintln(t.out, "Bye")
			return
		}
		fmt.Fprintln(t.out)
	}
}

func (t *terminal) authMenu(ctx context.Context) bool {
	fmt.Fprintln(t.out, "1) Iniciar sesión")
	fmt.Fprintln(t.out, "2) Registrarse")
	fmt.Fprintln(t.out, "0) Salir")
	switch t.ask("Select option") {
	case "1":
		user := t.askDefault("Usuario", t.ctrl.Snapshot().LoginPrefill)
		t.ctrl.Login(ctx, user, t.ask("Contraseña"))
	case "2":
		t.ctrl.ShowAuthForm(console.AuthRegister)
		t.ctrl.Register(ctx, t.ask("Usuario"), t.ask("Email"), t.ask("Contraseña"))
	case "0":
		return true
	default:
		fmt.Fprintln(t.out, "Invalid option")
	}
	return false
}

func (t *terminal) shellMenu(ctx context.Context) bool {
	fmt.Fprintln(t.out, "1) Dashboard            2) Productos           3) Importar/Exportar")
	fmt.Fprintln(t.out, "4) Ir a página          5) Filtrar             6) Limpiar filtros")
	fmt.Fprintln(t.out, "7) Nuevo producto       8) Editar producto     9) Eliminar producto")
	fmt.Fprintln(t.out, "10) Importar archivo    11) Exportar           12) Descargar errores")
	fmt.Fprintln(t.out, "13) Recargar            14) Cerrar sesión      0) Salir")

	switch t.ask("Select option") {
	case "1":
		t.ctrl.Navigate(ctx, console.SectionDashboard)
	case "2":
		t.ctrl.Navigate(ctx, console.SectionProducts)
	case "3":
		t.ctrl.Navigate(ctx, console.SectionImportExport)
	case "4":
		if n, ok := t.askInt("Página"); ok {
			t.ctrl.Navigate(ctx, console.SectionProducts)
			t.ctrl.ChangePage(ctx, n)
		}
	case "5":
		t.filter(ctx)
	case "6":
		t.ctrl.ApplyFilters(ctx, console.Filters{})
	case "7":
		t.ctrl.OpenEditor(nil)
		t.editor(ctx)
	case "8":
		if id, ok := t.askID("ID del producto"); ok && t.ctrl.OpenEditor(&id) {
			t.editor(ctx)
		}
	case "9":
		if id, ok := t.askID("ID del producto"); ok {
			t.ctrl.DeleteProduct(ctx, id, console.ConfirmFunc(t.confirm))
		}
	case "10":
		t.importFile(ctx)
	case "11":
		format, ok := apiclient.ParseExportFormat(t.askDefault("Formato (csv/xlsx)", "csv"))
		if !ok {
			fmt.Fprintln(t.out, "Formato no soportado")
			break
		}
		if name, ok := t.ctrl.Export(ctx, format, t.saver); ok {
			fmt.Fprintf(t.out, "💾 %s\n", name)
		}
	case "12":
		if id, ok := t.askID("ID de la importación"); ok {
			if name, ok := t.ctrl.DownloadErrors(ctx, id, t.saver); ok {
				fmt.Fprintf(t.out, "💾 %s\n", name)
			}
		}
	case "13":
		t.ctrl.Reload(ctx)
	case "14":
		t.ctrl.Logout()
	case "0":
		return true
	default:
		fmt.Fprintln(t.out, "Invalid option")
	}
	return false
}

func (t *terminal) filter(ctx context.Context) {
	cur := console.Render(t.ctrl.Snapshot()).Filters
	f := console.Filters{
		Nombre:    t.askDefault("Nombre", cur.Nombre),
		Categoria: t.askDefault("Categoría", cur.Categoria),
	}
	var err error
	if f.PrecioMin, err = validation.OptionalDecimal("precio_min", t.askDefault("Precio mínimo", cur.PrecioMin)); err != nil {
		t.ctrl.Feedback().Error(apiclient.Message(err))
		return
	}
	if f.PrecioMax, err = validation.OptionalDecimal("precio_max", t.askDefault("Precio máximo", cur.PrecioMax)); err != nil {
		t.ctrl.Feedback().Error(apiclient.Message(err))
		return
	}
	if f.StockMin, err = validation.OptionalInt("stock_min", t.askDefault("Stock mínimo", cur.StockMin)); err != nil {
		t.ctrl.Feedback().Error(apiclient.Message(err))
		return
	}
	t.ctrl.Navigate(ctx, console.SectionProducts)
	t.ctrl.ApplyFilters(ctx, f)
}

// editor fills the open dialog field by field. An empty answer keeps the
// current value.
func (t *terminal) editor(ctx context.Context) {
	ev := console.Render(t.ctrl.Snapshot()).Editor
	if ev == nil {
		return
	}
	fmt.Fprintf(t.out, "── %s ──\n", ev.Title)
	form := validation.ProductForm{
		Nombre:      t.askDefault("Nombre", ev.Values.Nombre),
		Descripcion: t.askDefault("Descripción", ev.Values.Descripcion),
		Precio:      t.askDefault("Precio", ev.Values.Precio),
		Stock:       t.askDefault("Stock", ev.Values.Stock),
		Categoria:   t.askDefault("Categoría", ev.Values.Categoria),
	}
	if !t.ctrl.SubmitProduct(ctx, form) {
		printToasts(t.out, t.ctrl.Feedback().Drain())
		if t.confirm("¿Corregir y reintentar?") {
			t.editor(ctx)
			return
		}
		t.ctrl.CloseEditor()
	}
}

func (t *terminal) importFile(ctx context.Context) {
	path := t.ask("Ruta del archivo (csv, xlsx, xls)")
	if path == "" {
		t.ctrl.Import(ctx, nil)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		t.ctrl.Feedback().Error(fmt.Sprintf("No se pudo abrir %s", path))
		return
	}
	defer f.Close()
	t.ctrl.Import(ctx, &apiclient.Upload{Filename: filepath.Base(path), Content: f})
}

func (t *terminal) confirm(prompt string) bool {
	answer := strings.ToLower(t.ask(prompt + " (s/n)"))
	return answer == "s" || answer == "si" || answer == "sí" || answer == "y"
}

func (t *terminal) ask(label string) string {
	fmt.Fprintf(t.out, "%s: ", label)
	line, _ := t.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (t *terminal) askDefault(label, current string) string {
	if current == "" {
		return t.ask(label)
	}
	if v := t.ask(fmt.Sprintf("%s [%s]", label, current)); v != "" {
		return v
	}
	return current
}

func (t *terminal) askInt(label string) (int, bool) {
	n, err := strconv.Atoi(t.ask(label))
	if err != nil {
		fmt.Fprintln(t.out, "Número inválido")
		return 0, false
	}
	return n, true
}

func (t *terminal) askID(label string) (int64, bool) {
	id, err := strconv.ParseInt(t.ask(label), 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintln(t.out, "ID inválido")
		return 0, false
	}
	return id, true
}
