// Package monitor renders diagnostic visualisations of fitted background
// models: static profile plots (gonum/plot) and interactive grid charts
// (go-echarts). It reads models through the bgestimate API only and never
// touches storage.
package monitor
