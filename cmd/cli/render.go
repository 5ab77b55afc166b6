package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/yourorg/catalogconsole/internal/console"
)

// spinner prints the loading indicator. Toasts are printed with the view.
type spinner struct {
	out io.Writer
}

func (s spinner) Toast(console.Toast) {}

func (s spinner) Loading(active bool) {
	if active {
		fmt.Fprintln(s.out, "⏳ Cargando...")
	}
}

var toastIcons = map[console.ToastKind]string{
	console.ToastSuccess: "✅",
	console.ToastError:   "❌",
	console.ToastInfo:    "ℹ️ ",
}

func printToasts(w io.Writer, toasts []console.Toast) {
	for _, t := range toasts {
		fmt.Fprintf(w, "%s %s\n", toastIcons[t.Kind], t.Message)
	}
}

// printView draws v as plain text.
func printView(w io.Writer, v console.View) {
	printToasts(w, v.Toasts)

	if !v.Authenticated {
		if v.AuthForm == console.AuthRegister {
			fmt.Fprintln(w, "==== Crear cuenta ====")
		} else {
			fmt.Fprintln(w, "==== Iniciar sesión ====")
		}
		return
	}

	var nav []string
	for _, n := range v.Nav {
		if n.Active {
			nav = append(nav, "["+n.Title+"]")
		} else {
			nav = append(nav, n.Title)
		}
	}
	header := fmt.Sprintf("==== %s ==== %s · %s", v.Title, strings.Join(nav, " | "), v.Username)
	if v.SessionExpires != "" {
		header += " (sesión hasta " + v.SessionExpires + ")"
	}
	fmt.Fprintln(w, header)

	switch v.Section {
	case console.SectionProducts:
		printProducts(w, v)
	case console.SectionImportExport:
		printImports(w, v)
	default:
		printDashboard(w, v)
	}
}

func printDashboard(w io.Writer, v console.View) {
	if v.Stats == nil {
		fmt.Fprintln(w, "No hay productos recientes")
		return
	}
	st := v.Stats
	fmt.Fprintf(w, "Total productos: %d · Stock total: %s · Valor inventario: %s · Categorías: %d\n",
		st.TotalProducts, st.TotalStock, st.InventoryValue, st.Categories)
	fmt.Fprintln(w, "Productos recientes:")
	if len(st.Recent) == 0 {
		fmt.Fprintln(w, "  No hay productos recientes")
	}
	for _, p := range st.Recent {
		fmt.Fprintf(w, "  #%d %s · %s · %s\n", p.ID, p.Nombre, p.Categoria, p.Precio)
	}
}

func printProducts(w io.Writer, v console.View) {
	f := v.Filters
	if f != (console.FilterValues{}) {
		fmt.Fprintf(w, "Filtros: nombre=%q categoría=%q precio=%s..%s stock≥%s\n",
			f.Nombre, f.Categoria, f.PrecioMin, f.PrecioMax, f.StockMin)
	}
	if v.ProductsEmpty {
		fmt.Fprintln(w, "No se encontraron productos")
		return
	}
	for _, p := range v.Products {
		low := ""
		if p.LowStock {
			low = " ⚠️ stock bajo"
		}
		fmt.Fprintf(w, "#%-4d %-30s %10s  stock %-5d %-15s%s\n", p.ID, p.Nombre, p.Precio, p.Stock, p.Categoria, low)
		fmt.Fprintf(w, "      %s\n", p.Descripcion)
	}

	pv := v.Pagination
	if !pv.Visible {
		return
	}
	var links []string
	for _, l := range pv.Links {
		switch {
		case l.Ellipsis:
			links = append(links, "...")
		case l.Current:
			links = append(links, fmt.Sprintf("[%d]", l.Number))
		default:
			links = append(links, fmt.Sprint(l.Number))
		}
	}
	fmt.Fprintf(w, "Páginas: %s\n", strings.Join(links, " "))
}

func printImports(w io.Writer, v console.View) {
	if s := v.ImportSummary; s != nil {
		fmt.Fprintf(w, "%s (total %d, exitosas %d, fallidas %d)\n", s.Message, s.TotalRows, s.SuccessfulRows, s.FailedRows)
	}
	fmt.Fprintln(w, "Historial de importaciones:")
	if len(v.ImportLogs) == 0 {
		fmt.Fprintln(w, "  No hay importaciones registradas")
		return
	}
	for _, l := range v.ImportLogs {
		mark := ""
		if l.CanDownload {
			mark = " (errores disponibles)"
		}
		fmt.Fprintf(w, "  #%d %s · %s · %d/%d ok · %s%s\n", l.ID, l.Filename, l.Status, l.SuccessfulRows, l.TotalRows, l.StartedAt, mark)
	}
}
